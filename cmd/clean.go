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
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/rotblauer/trackfix/api"
	"github.com/rotblauer/trackfix/conceptual"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/stream"
	"github.com/rotblauer/trackfix/types"
	"github.com/rotblauer/trackfix/types/run"
	"github.com/rotblauer/trackfix/types/sample"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [file]",
	Short: "Correct teleportation glitches in a trace",
	Long: `Reads a trace from the file, or stdin, and writes the corrected trace with anomaly counts.

A sample is anomalous if the speed from its predecessor or to its successor exceeds
the threshold. Each anomalous sample is replaced by the midpoint of its original neighbors,
keeping its own timestamp. The first and last samples are never changed.

Flags:

  --threshold     Speed threshold in m/s. (Default is 200.)
  --coord-scale   Multiplies raw coordinates, eg. 1e-6 for integer microdegrees.
  --stream        Read newline-delimited samples and correct them as they arrive.
  --id            Trace id, for storage and the last-run cache.
  --store         Store input, output and run summary under <datadir>/traces/<id>/. Requires --id.
  --check         Attach a speed report of the corrected trace; exit 2 if it fails.
  --influx        Export the run to InfluxDB (INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET).
  --format        Output format: json or geojson.
  --output        Output file. (Default is stdout.)

Examples:

  trackfix clean trace.json
  trackfix clean --coord-scale 1e-6 --format geojson trace.json > corrected.geojson
  cat trace.ndjson | trackfix clean --stream --id rye --store --check
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		ctx, cancel := interruptContext()
		defer cancel()

		config := params.DefaultCleanerConfig()
		config.Anomaly = &params.AnomalyConfig{
			SpeedThreshold: viper.GetFloat64("threshold"),
			EarthRadius:    params.DefaultAnomalyConfig.EarthRadius,
		}
		if config.Anomaly.SpeedThreshold <= 0 {
			log.Fatalln("threshold must be positive")
		}
		if viper.GetBool("check") {
			config.Check = &params.SpeedCheckConfig{
				SpeedThreshold:            config.Anomaly.SpeedThreshold,
				DeviationTolerancePercent: params.DefaultSpeedCheckConfig.DeviationTolerancePercent,
			}
		}
		config.DataDir = datadir()
		config.Store = viper.GetBool("store")
		if viper.GetBool("influx") {
			config.Influx = params.InfluxConfigFromEnv()
			if config.Influx == nil {
				log.Fatalln("--influx requires INFLUXDB_URL")
			}
		}

		traceID := conceptual.SanitizeTraceID(viper.GetString("id"))
		if config.Store && traceID.Empty() {
			log.Fatalln("--store requires --id")
		}

		cleaner, err := api.NewCleaner(config)
		if err != nil {
			log.Fatalln(err)
		}
		defer cleaner.Close()

		in, err := openInput(cmd, args)
		if err != nil {
			log.Fatalln(err)
		}
		defer in.Close()

		scale := viper.GetFloat64("coord-scale")
		var r *run.Run
		if viper.GetBool("stream") {
			samples, errs := stream.NDJSON[sample.Sample](ctx, in)
			scaled := stream.Transform(ctx, func(s sample.Sample) sample.Sample {
				return types.ScaleTrace(sample.Trace{s}, scale)[0]
			}, samples)
			r, err = cleaner.CleanStream(ctx, traceID, scaled, errs)
		} else {
			data, readErr := io.ReadAll(in)
			if readErr != nil {
				log.Fatalln(readErr)
			}
			trace, decodeErr := types.DecodeTrace(data, &params.DecodeConfig{CoordScale: scale})
			if decodeErr != nil {
				log.Fatalln(decodeErr)
			}
			r, err = cleaner.Clean(ctx, traceID, trace)
		}
		if r == nil {
			log.Fatalln(err)
		}
		if err != nil {
			// The run completed; storage or export did not.
			slog.Error("Run side effects failed", "error", err)
		}

		out, err := openOutput(viper.GetString("output"))
		if err != nil {
			log.Fatalln(err)
		}
		var v any = r.Result
		if viper.GetString("format") == "geojson" {
			v = r.Result.FeatureCollection()
		}
		if err := writeJSON(out, v, false); err != nil {
			log.Fatalln(err)
		}
		if err := out.Close(); err != nil {
			log.Fatalln(err)
		}

		if r.Check != nil {
			slog.Info("Speed check", "ok", r.Check.OK, "reason", r.Check.Reason,
				"intervals", r.Check.Intervals,
				"mean", r.Check.MeanSpeed, "max", r.Check.MaxSpeed,
				"deviation.pct", r.Check.DeviationPercent)
			if !r.Check.OK {
				cleaner.Close()
				os.Exit(2)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	flags := cleanCmd.Flags()
	flags.Float64("threshold", params.DefaultAnomalyConfig.SpeedThreshold, "Speed threshold in m/s")
	flags.Float64("coord-scale", params.DefaultDecodeConfig.CoordScale, "Coordinate scale factor, eg. 1e-6 for microdegrees")
	flags.Bool("stream", false, "Read newline-delimited samples as a stream")
	flags.String("id", "", "Trace id")
	flags.Bool("store", false, "Store the run under the datadir (requires --id)")
	flags.Bool("check", false, "Attach a speed report and exit 2 if it fails")
	flags.Bool("influx", false, "Export the run to InfluxDB")
	flags.String("format", "json", "Output format (json, geojson)")
	flags.StringP("output", "o", "", "Output file (default stdout)")

	bindFlags(flags, "threshold", "coord-scale", "stream", "id", "store", "check", "influx", "format", "output")
}
