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
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optConfigFile string
var optLogLevel string

var rootCmd = &cobra.Command{
	Use:   "vtsproxy",
	Short: "Map-tile proxy core: calipers, metatiles, and the generator registry",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&optConfigFile, "config", "", "config file (default $HOME/.vtsproxy.yaml)")
	rootCmd.PersistentFlags().StringVar(&optLogLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func initConfig() {
	if optConfigFile != "" {
		viper.SetConfigFile(optConfigFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vtsproxy")
	}
	viper.SetEnvPrefix("VTSPROXY")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// setDefaultSlog resets the process-wide slog level from --log-level,
// called at the top of every subcommand's Run.
func setDefaultSlog(cmd *cobra.Command, _ []string) {
	level, ok := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}[strings.ToLower(optLogLevel)]
	if !ok {
		level = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(level)
}
