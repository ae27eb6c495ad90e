/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rotblauer/vtsproxy/adminserver"
	"github.com/rotblauer/vtsproxy/backend"
	"github.com/rotblauer/vtsproxy/common"
	"github.com/rotblauer/vtsproxy/genfactory"
	"github.com/rotblauer/vtsproxy/metricsx"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/refframe"
	"github.com/rotblauer/vtsproxy/registry"
	"github.com/rotblauer/vtsproxy/resource"
	"github.com/rotblauer/vtsproxy/warper"
)

var optFramesDir string
var optAdminNetwork string
var optAdminAddress string

var serveListenerFlags = pflag.NewFlagSet("serve", pflag.ContinueOnError)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generator registry and its admin surface",
	Long: `serve loads every reference frame under --frames-dir, opens the
configured resource backend, registers the factories attached to
genfactory.Default (by main, before this command runs), and starts
the registry's reconciliation loop and prepare pool alongside the
introspection-only admin HTTP/WS surface.`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		logger := slog.Default()

		cfg := params.DefaultConfig()
		cfg.Admin.Network = optAdminNetwork
		cfg.Admin.Address = optAdminAddress

		frames := refframe.NewRegistry()
		matches, err := filepath.Glob(filepath.Join(optFramesDir, "*.json"))
		if err != nil {
			log.Fatalf("listing reference frame files: %v", err)
		}
		for _, path := range matches {
			if _, err := frames.Load(path); err != nil {
				log.Fatalf("loading reference frame %s: %v", path, err)
			}
		}

		var b backend.Backend
		switch cfg.Backend.Kind {
		case "s3":
			b, err = backend.NewS3Backend(cfg.Backend.S3Bucket, cfg.Backend.S3Key, cfg.Backend.S3Region, frames)
		default:
			b, err = backend.NewFSBackend(cfg.Backend.FSRoot, frames)
		}
		if err != nil {
			log.Fatalf("opening resource backend: %v", err)
		}

		arsenal := warper.StaticArsenal{Client: warper.NewRPCClient(cfg.Warper.Listener.Network, cfg.Warper.Listener.Address)}

		reg, err := registry.New(cfg.Registry, b, frames, arsenal, genfactory.Default, registry.NeverFreeze, logger)
		if err != nil {
			log.Fatalf("constructing registry: %v", err)
		}

		metrics := metricsx.NewExporter(cfg.Metrics, logger)
		defer metrics.Close()
		reg.OnPrepared(func(id resource.ID, generatorType, group string, revision int, elapsed time.Duration, preparing int64) {
			metrics.ExportPrepareDuration(id.ReferenceFrame, generatorType, group, revision, elapsed, preparing)
		})

		events := make(chan registry.Event, 64)
		sub := reg.Events().Subscribe(events)
		defer sub.Unsubscribe()
		go func() {
			for {
				select {
				case ev := <-events:
					snap, _, ok := reg.Get(ev.ID)
					if !ok {
						continue
					}
					metrics.ExportGeneratorEvent(ev, snap.GeneratorType, snap.Group)
				case err := <-sub.Err():
					if err != nil {
						logger.Error("registry event subscription failed", "error", err)
					}
					return
				}
			}
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := reg.Start(ctx); err != nil {
			log.Fatalf("starting registry: %v", err)
		}
		defer reg.Stop()

		admin := adminserver.NewServer(cfg.Admin, reg, logger)
		go func() {
			if err := admin.ListenAndServe(); err != nil {
				logger.Error("admin surface exited", "error", err)
			}
		}()

		sig := <-common.Interrupted()
		logger.Info("serve interrupted", "signal", sig)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	cfg := params.DefaultAdminConfig()
	serveListenerFlags.StringVar(&optFramesDir, "frames-dir", "", "directory of reference frame JSON files")
	serveListenerFlags.StringVar(&optAdminNetwork, "admin.listen.network", cfg.Network, "network the admin surface listens on")
	serveListenerFlags.StringVar(&optAdminAddress, "admin.listen.address", cfg.Address, "address the admin surface listens on")
	serveCmd.Flags().AddFlagSet(serveListenerFlags)
}
