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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rotblauer/vtsproxy/calipers"
	"github.com/rotblauer/vtsproxy/geo"
	"github.com/rotblauer/vtsproxy/geodataset"
	"github.com/rotblauer/vtsproxy/params"
	"github.com/rotblauer/vtsproxy/refframe"
)

var optDatasetType string
var optDemToOphotoScale float64
var optTileFractionLimit float64
var optRegistryDir string

var caliperListenerFlags = pflag.NewFlagSet("calipers", pflag.ContinueOnError)

var calipersCmd = &cobra.Command{
	Use:   "calipers <dataset-path> <referenceFrameId>",
	Short: "Compute per-node LOD/tile-range for a dataset against a reference frame",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		if err := runCalipers(args[0], args[1]); err != nil {
			fmt.Fprintln(os.Stderr, "calipers:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(calipersCmd)

	cfg := params.DefaultCalipersConfig()

	caliperListenerFlags.StringVar(&optDatasetType, "datasetType", "",
		"force dataset kind (dem|ophoto) instead of autodetecting")
	caliperListenerFlags.Float64Var(&optDemToOphotoScale, "demToOphotoScale", cfg.InvGsdScale,
		"invGsdScale for DEM datasets; 1 is used for ophoto regardless")
	caliperListenerFlags.Float64Var(&optTileFractionLimit, "tileFractionLimit", cfg.TileFractionLimit,
		"inverse tile fraction at which border refinement terminates")
	caliperListenerFlags.StringVar(&optRegistryDir, "registry", cfg.RegistryPath,
		"directory containing <referenceFrameId>.json reference-frame descriptions")
	calipersCmd.Flags().AddFlagSet(caliperListenerFlags)

	viper.BindPFlag("calipers.demToOphotoScale", caliperListenerFlags.Lookup("demToOphotoScale"))
	viper.BindPFlag("calipers.tileFractionLimit", caliperListenerFlags.Lookup("tileFractionLimit"))
	viper.BindPFlag("calipers.registry", caliperListenerFlags.Lookup("registry"))
}

func runCalipers(datasetPath, referenceFrameID string) error {
	d, err := geodataset.LoadDescriptor(datasetPath)
	if err != nil {
		return err
	}

	kind, err := geodataset.DetectKind(d, geodataset.Kind(optDatasetType))
	if err != nil {
		return err
	}

	registryDir := optRegistryDir
	if v := viper.GetString("calipers.registry"); v != "" {
		registryDir = v
	}
	reg := refframe.NewRegistry()
	rf, err := reg.Load(filepath.Join(registryDir, referenceFrameID+".json"))
	if err != nil {
		return fmt.Errorf("loading reference frame %q: %w", referenceFrameID, err)
	}

	opts := calipers.DefaultOptions()
	opts.TileFractionLimit = viper.GetFloat64("calipers.tileFractionLimit")
	if kind == geodataset.KindOphoto {
		opts.InvGsdScale = 1
	} else {
		opts.InvGsdScale = viper.GetFloat64("calipers.demToOphotoScale")
	}

	ranges, gsd, err := calipers.Run(d, rf, kind, opts)
	if err != nil {
		return err
	}

	nodeSRS := make(map[geo.NodeID]geo.SrsID)
	rf.Walk(func(ni refframe.NodeInfo) { nodeSRS[ni.ID()] = ni.SRS() })

	// Map iteration order is unspecified; downstream tools must not
	// rely on per-node ordering.
	fmt.Println("gsd:", calipers.FormatFloat(gsd))
	for id, r := range ranges {
		srs, ok := nodeSRS[id]
		if !ok {
			continue
		}
		fmt.Println(calipers.FormatNodeLine(srs, r))
	}
	return nil
}
