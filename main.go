package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"WordCount/internal/config"
	"WordCount/internal/coordinator"
	"WordCount/internal/input"
	"WordCount/internal/ledger"
	"WordCount/internal/logger"
)

func main() {
	cfg, err := config.Parse("wordcount", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "wordcount: %v\n", err)
		os.Exit(2)
	}

	lg := logger.New(cfg.LogLevel)

	runnerCfg := coordinator.Config{
		Workers: cfg.Workers,
		Logger:  lg,
	}

	if cfg.LedgerDir != "" {
		l, err := ledger.Open(ledger.Config{DataDir: cfg.LedgerDir, Logger: lg})
		if err != nil {
			lg.Error("Failed to open ledger: %v", err)
			os.Exit(1)
		}
		defer l.Close()
		runnerCfg.Ledger = l
	}

	runner := coordinator.NewRunner(runnerCfg)
	summary, err := runner.Run(input.Dir{Path: cfg.InputDir}, cfg.OutputDir)
	if err != nil {
		// os.Exit skips deferred calls, so the ledger is closed here.
		if runnerCfg.Ledger != nil {
			runnerCfg.Ledger.Close()
		}
		os.Exit(1)
	}

	fmt.Printf("%s: %d distinct words written to %s in %s\n",
		summary.JobID, summary.Results, summary.OutputDir, summary.Duration)
}
