package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gnames/csdoptimade/cmd"
	"github.com/lmittmann/tint"
)

func main() {
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      cmd.LogLevel,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
	cmd.Execute()
}
