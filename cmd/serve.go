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

	"github.com/gnames/csdoptimade/internal/io/serveio"
	csdoptimade "github.com/gnames/csdoptimade/pkg"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve <optimade.jsonl>",
	Short: "Runs OPTIMADE API over a converted JSONL file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		o := opts
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			o = append(o, config.OptPort(port))
		}
		cfg := config.New(o...)

		srv, err := serveio.New(cfg, args[0])
		if err != nil {
			slog.Error("Cannot create server", "error", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gnd := csdoptimade.New(cfg)
		if err = gnd.Serve(ctx, srv); err != nil {
			slog.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port of the API, default is 5000")
}
