// Package cli implements the depotyard command-line interface.
//
// Commands:
//   - serve: run the HTTP API together with the hold reaper and outbox relay
//   - migrate: apply database migrations and exit
//   - relay: run only the outbox relay
//   - audit-consumer: write audit events from the broker to the audit log
//   - token: print a signed access token for local testing
//
// Configuration is read from an optional --config file, a .env file and the
// environment (see package config).
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/config"
)

var (
	version = "dev"
	commit  string
)

// SetVersion sets the version information displayed by --version.  It is
// called from main with values injected via ldflags.
func SetVersion(v, c string) {
	if v != "" {
		version = v
	}
	commit = c
}

// Execute runs the depotyard CLI and returns an error if any command fails.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:          "depotyard",
		Short:        "Container yard slot allocator",
		Long:         `depotyard reserves, confirms and releases container stack positions in a depot yard and publishes the resulting move tasks and audit events.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Log, os.Stderr)
			if verbose {
				logger.SetLevel(charmlog.DebugLevel)
			}
			ctx := withConfig(cmd.Context(), cfg)
			cmd.SetContext(withLogger(ctx, logger))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("depotyard %s\ncommit: %s\n", version, commit))
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, toml or json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newRelayCmd())
	root.AddCommand(newAuditConsumerCmd())
	root.AddCommand(newTokenCmd())
	return root
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	configKey
)

func withLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger set up by the root command, or
// log.Default().
func loggerFromContext(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

func configFromContext(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(configKey).(*config.Config)
	return cfg
}
