package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
)

var (
	ErrMissingInput  = errors.New("input directory is required")
	ErrMissingOutput = errors.New("output directory is required")
)

type Config struct {
	InputDir  string
	OutputDir string
	Workers   int
	LogLevel  string
	LedgerDir string
}

// Parse reads flags from args. Every flag falls back to a WC_* environment
// variable, then to its built-in default.
func Parse(name string, args []string) (*Config, error) {
	cfg := &Config{}

	workers, err := envInt("WC_WORKERS", 1)
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.InputDir, "input", getenv("WC_INPUT", ""), "Path to the input directory.")
	fs.StringVar(&cfg.OutputDir, "output", getenv("WC_OUTPUT", ""), "Path to the output directory. Must not exist.")
	fs.IntVar(&cfg.Workers, "workers", workers, "Goroutines for the map and sort stages; 0 means one per CPU.")
	fs.StringVar(&cfg.LogLevel, "log-level", getenv("WC_LOG_LEVEL", "INFO"), "DEBUG, INFO, WARN or ERROR.")
	fs.StringVar(&cfg.LedgerDir, "ledger", getenv("WC_LEDGER", ""), "Directory of the job ledger; empty disables it.")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrMissingInput
	}
	if c.OutputDir == "" {
		return ErrMissingOutput
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", k, v, err)
	}
	return n, nil
}
