/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/gnames/csdoptimade/internal/io/recordio"
	csdoptimade "github.com/gnames/csdoptimade/pkg"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/spf13/cobra"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load <records.jsonl>",
	Short: "Imports JSON lines of structural database records",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		cfg := config.New(opts...)

		f, err := os.Open(args[0])
		if err != nil {
			slog.Error("Cannot open records file", "error", err, "path", args[0])
			os.Exit(1)
		}
		defer f.Close()

		st, err := recordio.New(cfg.SourceDir)
		if err != nil {
			slog.Error("Cannot open records store", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		gnd := csdoptimade.New(cfg)
		n, err := gnd.Load(st, f)
		if err != nil {
			slog.Error("Cannot load records", "error", err)
			st.Close()
			os.Exit(1)
		}
		slog.Info("Records store is ready",
			"indices", humanize.Comma(int64(n)), "dir", cfg.SourceDir)
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
