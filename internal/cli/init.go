// Package cli is the financas command line: bootstrap helpers shared by
// every command and the cobra command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"financas/internal/config"
	"financas/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given level and makes it the
// default. Logs go to out so stdout stays free for command output.
func SetupLogger(level string, out io.Writer) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentApp, Output: out})
	log.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig reads path (optional), layers the environment on
// top and validates the result.
func LoadAndValidateConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// requireOwner returns the configured owner or explains how to set one.
func requireOwner(cfg *config.Config) (string, error) {
	if cfg.Owner == "" {
		return "", fmt.Errorf("no owner: pass --owner or set FINANCAS_OWNER")
	}
	return cfg.Owner, nil
}
