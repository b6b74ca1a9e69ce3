// Copyright © 2020 Dmitry Mozzherin <dmozzherin@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	csdoptimade "github.com/gnames/csdoptimade/pkg"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/gnames/gnsys"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//go:embed csdoptimade.yaml
var configText string

var (
	opts []config.Option

	// LogLevel is the level of the default logger.
	LogLevel = new(slog.LevelVar)
)

type cfgData struct {
	OutputDir      string
	SourceDir      string
	RunName        string
	JobsNum        int
	ChunkSize      int
	NumStructures  int
	BadIdentifiers []string
	AdvisoryDelay  time.Duration
	Port           int
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "csdoptimade",
	Short: "Converts Cambridge Structural Database entries to OPTIMADE",
	Long: `Converts crystal structures of the Cambridge Structural Database into
OPTIMADE structures and references, written as one JSON lines file that
can be served by an OPTIMADE API.

Typical workflow:

  csdoptimade load records.jsonl
  csdoptimade ingest -j 8
  csdoptimade serve ~/.cache/csdoptimade/csd-optimade.jsonl`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			LogLevel.Set(slog.LevelDebug)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		version, err := cmd.Flags().GetBool("version")
		if err != nil {
			slog.Error("Cannot get flag", "error", err)
			os.Exit(1)
		}
		if version {
			fmt.Printf("\nversion: %s\nbuild: %s\n\n",
				csdoptimade.Version, csdoptimade.Build)
			os.Exit(0)
		}

		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().BoolP("version", "V", false, "Returns version and build date")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Logs debug messages")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	var homeDir, cfgDir string
	configFile := "csdoptimade"

	// Find home directory.
	homeDir, err = os.UserHomeDir()
	if err != nil {
		slog.Error("Cannot find home dir", "error", err)
		os.Exit(1)
	}
	cfgDir = filepath.Join(homeDir, ".config")

	viper.AddConfigPath(cfgDir)
	viper.SetConfigName(configFile)

	configPath := filepath.Join(cfgDir, fmt.Sprintf("%s.yaml", configFile))
	touchConfigFile(configPath)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		slog.Error("Config file csdoptimade.yaml not found", "error", err)
		os.Exit(1)
	}
	getOpts()
}

// getOpts imports data from the configuration file. Some of the settings can
// be overriden by command line flags.
func getOpts() []config.Option {
	cfg := cfgData{}
	err := viper.Unmarshal(&cfg)
	if err != nil {
		slog.Error("Cannot unmarshal config file", "error", err)
	}

	if cfg.OutputDir != "" {
		opts = append(opts, config.OptOutputDir(cfg.OutputDir))
	}
	if cfg.SourceDir != "" {
		opts = append(opts, config.OptSourceDir(cfg.SourceDir))
	}
	if cfg.RunName != "" {
		opts = append(opts, config.OptRunName(cfg.RunName))
	}
	if cfg.JobsNum != 0 {
		opts = append(opts, config.OptJobsNum(cfg.JobsNum))
	}
	if cfg.ChunkSize != 0 {
		opts = append(opts, config.OptChunkSize(cfg.ChunkSize))
	}
	if cfg.NumStructures != 0 {
		opts = append(opts, config.OptNumStructures(cfg.NumStructures))
	}
	if len(cfg.BadIdentifiers) > 0 {
		opts = append(opts, config.OptBadIdentifiers(cfg.BadIdentifiers))
	}
	if viper.IsSet("AdvisoryDelay") {
		opts = append(opts, config.OptAdvisoryDelay(cfg.AdvisoryDelay))
	}
	if cfg.Port != 0 {
		opts = append(opts, config.OptPort(cfg.Port))
	}
	return opts
}

// touchConfigFile checks if config file exists, and if not, it gets created.
func touchConfigFile(configPath string) {
	fileExists, _ := gnsys.FileExists(configPath)
	if fileExists {
		return
	}

	slog.Info("Creating config file", "path", configPath)
	createConfig(configPath)
}

// createConfig creates config file.
func createConfig(path string) {
	err := gnsys.MakeDir(filepath.Dir(path))
	if err != nil {
		slog.Error("Cannot create config dir", "error", err)
		os.Exit(1)
	}

	err = os.WriteFile(path, []byte(configText), 0644)
	if err != nil {
		slog.Error("Cannot write to config file", "error", err)
		os.Exit(1)
	}
}
