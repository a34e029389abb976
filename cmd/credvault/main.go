package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtroode/credvault/internal/cli"
	"github.com/dtroode/credvault/internal/config"
	"github.com/dtroode/credvault/internal/logger"
	"github.com/dtroode/credvault/internal/metrics"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Printf("failed to parse config: %v", err)
		return cli.ExitFailure
	}
	logger := logger.New(cfg.LogLevel)

	app := cli.NewApp(cfg, logger, metrics.New(), cli.BuildInfo{
		Version: buildVersion,
		Date:    buildDate,
		Commit:  buildCommit,
	})
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to shut down cleanly", "error", err)
		}
	}()

	if err := cli.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
