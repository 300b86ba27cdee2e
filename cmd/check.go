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
	"os"

	"github.com/rotblauer/trackfix/geo/speedcheck"
	"github.com/rotblauer/trackfix/params"
	"github.com/rotblauer/trackfix/types"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Report the interval speeds of a trace",
	Long: `Reads a trace from the file, or stdin, and writes a JSON report of its interval speeds.
Intervals with zero or negative elapsed time are skipped.

The check fails, with exit status 1, if any interval is faster than the threshold,
or if the maximum speed exceeds the mean by more than the tolerance.
Use it to verify the output of clean:

  trackfix clean trace.json | trackfix check
`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		flags := cmd.Flags()
		threshold, _ := flags.GetFloat64("threshold")
		tolerance, _ := flags.GetFloat64("tolerance")
		scale, _ := flags.GetFloat64("coord-scale")

		in, err := openInput(cmd, args)
		if err != nil {
			log.Fatalln(err)
		}
		defer in.Close()
		data, err := io.ReadAll(in)
		if err != nil {
			log.Fatalln(err)
		}

		trace, err := types.DecodeTrace(data, &params.DecodeConfig{CoordScale: scale})
		if err != nil {
			log.Fatalln(err)
		}
		report := speedcheck.Check(trace, &params.SpeedCheckConfig{
			SpeedThreshold:            threshold,
			DeviationTolerancePercent: tolerance,
		})
		if err := writeJSON(os.Stdout, report, true); err != nil {
			log.Fatalln(err)
		}
		if !report.OK {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := checkCmd.Flags()
	flags.Float64("threshold", params.DefaultSpeedCheckConfig.SpeedThreshold, "Speed threshold in m/s")
	flags.Float64("tolerance", params.DefaultSpeedCheckConfig.DeviationTolerancePercent, "Max-over-mean speed tolerance, percent")
	flags.Float64("coord-scale", params.DefaultDecodeConfig.CoordScale, "Coordinate scale factor, eg. 1e-6 for microdegrees")
}
