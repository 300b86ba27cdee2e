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

	"github.com/rotblauer/trackfix/daemon/webd"
	"github.com/rotblauer/trackfix/params"
	"github.com/spf13/cobra"
)

// webdCmd represents the serve command
var webdCmd = &cobra.Command{
	Use:   "webd",
	Short: "Start the webserver",
	Long: `Serves trace correction over HTTP.

  GET  /ping           healthcheck
  POST /clean          correct the trace in the body (?id=&threshold=&coord_scale=&format=geojson)
  GET  /last/{id}      last result for a trace id
  GET  /status         uptime, stored runs and anomaly hotspots
  GET  /socket         websocket of run summaries
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		slog.Info("webd.Run")

		flags := cmd.Flags()
		address, _ := flags.GetString("address")
		store, _ := flags.GetBool("store")
		influx, _ := flags.GetBool("influx")

		config := params.DefaultWebDaemonConfig()
		config.Address = address
		config.DataDir = datadir()
		config.Store = store
		if influx {
			config.Influx = params.InfluxConfigFromEnv()
			if config.Influx == nil {
				log.Fatalln("--influx requires INFLUXDB_URL")
			}
		}
		server, err := webd.NewWebDaemon(config)
		if err != nil {
			log.Fatalln(err)
		}

		ctx, cancel := interruptContext()
		defer cancel()
		if err := server.Run(ctx); err != nil {
			log.Fatalln(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(webdCmd)

	defaults := params.DefaultWebDaemonConfig()

	flags := webdCmd.Flags()
	flags.String("address", defaults.Address, "HTTP address to listen on")
	flags.Bool("store", defaults.Store, "Store runs posted with an id")
	flags.Bool("influx", false, "Export runs to InfluxDB (INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET)")
}
