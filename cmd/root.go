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
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/rotblauer/trackfix/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trackfix",
	Short: "Correct GPS teleportation glitches in location traces",
	Long: `trackfix finds samples in a GPS trace that imply an impossible speed
(over 200 m/s by default) to or from a neighbor, and replaces each with
the midpoint of its neighbors, keeping its timestamp.

Traces are JSON arrays of {"lat","lon","time"} samples, newline-delimited
samples, or GeoJSON FeatureCollections of points with a "time" property.

Examples:

  trackfix clean trace.json
  cat trace.ndjson | trackfix clean --stream --id rye --store
  trackfix check corrected.json
  trackfix webd --address localhost:3000
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trackfix.yaml)")
	pFlags.String("datadir", params.DefaultDatadirRoot, "Root directory for stored traces and the run ledger")
	pFlags.Int("verbosity", int(slog.LevelInfo), "Log level (-4 debug, 0 info, 4 warn, 8 error)")
	pFlags.String("log-format", "text", "Log format (text, json)")

	bindFlags(pFlags, "datadir", "verbosity", "log-format")
}

// bindFlags binds the named flags to viper keys of the same name,
// so they may also be set by env or config file.
func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, fs.Lookup(name)); err != nil {
			log.Fatalln(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".trackfix" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trackfix")
	}

	// eg. TRACKFIX_DATADIR, TRACKFIX_LOG_FORMAT
	viper.SetEnvPrefix("trackfix")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaultSlog installs the default logger from the persistent log flags.
// Logs go to stderr; stdout is for results.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	opts := &slog.HandlerOptions{
		Level: slog.Level(viper.GetInt("verbosity")),
	}
	var handler slog.Handler
	switch viper.GetString("log-format") {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func datadir() string {
	d, err := homedir.Expand(viper.GetString("datadir"))
	if err != nil {
		log.Fatalln(err)
	}
	return d
}
