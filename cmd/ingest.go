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
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnames/csdoptimade/internal/ent/mapper"
	"github.com/gnames/csdoptimade/internal/io/ingestio"
	"github.com/gnames/csdoptimade/internal/io/recordio"
	csdoptimade "github.com/gnames/csdoptimade/pkg"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Converts loaded records to one OPTIMADE JSONL file",
	Run: func(cmd *cobra.Command, _ []string) {
		flagOpts := ingestFlags(cmd)
		cfg := config.New(append(opts, flagOpts...)...)

		st, err := recordio.New(cfg.SourceDir)
		if err != nil {
			slog.Error("Cannot open records store", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if !cmd.Flags().Changed("num-structures") && !numStructuresSet() {
			n, err := st.Len()
			if err != nil {
				slog.Error("Cannot count records", "error", err)
				os.Exit(1)
			}
			cfg.NumStructures = n
		}
		if cfg.NumStructures == 0 {
			slog.Warn("There are no records to ingest, run 'csdoptimade load' first")
			return
		}

		ing, err := ingestio.New(cfg, st, mapper.New())
		if err != nil {
			slog.Error("Cannot create Ingester", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gnd := csdoptimade.New(cfg)
		_, err = gnd.Ingest(ctx, ing)
		if err != nil {
			slog.Error("Cannot ingest records", "error", err)
			st.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().IntP("num-processes", "j", 0,
		"number of concurrent workers, default is number of CPU cores")
	ingestCmd.Flags().IntP("chunk-size", "c", 0,
		"records per chunk, default is estimated from available memory")
	ingestCmd.Flags().IntP("num-structures", "n", 0,
		"upper bound of record indices, default is number of loaded records")
	ingestCmd.Flags().StringP("run-name", "r", "",
		"prefix of output files, default is 'csd'")
}

func ingestFlags(cmd *cobra.Command) []config.Option {
	var res []config.Option
	if j, _ := cmd.Flags().GetInt("num-processes"); j > 0 {
		res = append(res, config.OptJobsNum(j))
	}
	if c, _ := cmd.Flags().GetInt("chunk-size"); c > 0 {
		res = append(res, config.OptChunkSize(c))
	}
	if n, _ := cmd.Flags().GetInt("num-structures"); n > 0 {
		res = append(res, config.OptNumStructures(n))
	}
	if r, _ := cmd.Flags().GetString("run-name"); r != "" {
		res = append(res, config.OptRunName(r))
	}
	return res
}

// numStructuresSet is true if the configuration file limits the number of
// records.
func numStructuresSet() bool {
	return viper.GetInt("NumStructures") > 0
}
