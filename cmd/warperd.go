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
	"log"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rotblauer/vtsproxy/common"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/warper"
)

var warperdListenerFlags = pflag.NewFlagSet("warperd.listen", pflag.ContinueOnError)

var warperdConfig = params.DefaultWarperConfig()

var warperdCmd = &cobra.Command{
	Use:   "warperd",
	Short: "Run the dataset warping RPC daemon",
	Long: `warperd is the subprocess that actually performs dataset warps.

The core never assumes in-process execution; this
command is the reference implementation of the other end of that
boundary.
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("warperd.Run")

		s := warper.NewServer(warperdConfig, warper.NullClient{})
		go func() {
			if err := s.Start(); err != nil {
				log.Fatalln(err)
			}
		}()
		sig := <-common.Interrupted()
		slog.Info("warperd interrupted", "signal", sig)
		s.Stop()
	},
}

func init() {
	rootCmd.AddCommand(warperdCmd)

	cfg := warperdConfig
	warperdListenerFlags.StringVar(&cfg.Listener.Network, "warperd.listen.network", cfg.Listener.Network, "network to listen on")
	warperdListenerFlags.StringVar(&cfg.Listener.Address, "warperd.listen.address", cfg.Listener.Address, "address to listen on")
	warperdCmd.Flags().AddFlagSet(warperdListenerFlags)
}
