package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/queue"
)

func newAuditConsumerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-consumer",
		Short: "Append audit events from the broker to the audit log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := configFromContext(ctx)
			logger := loggerFromContext(ctx)

			w, err := cfg.Log.AuditWriter()
			if err != nil {
				return err
			}
			defer w.Close()

			logger.Info("writing audit log", "file", cfg.Log.AuditFile, "queue", cfg.AMQP.AuditQueue)
			err = queue.StartAuditConsumer(ctx, cfg.AMQP.URL, cfg.AMQP.AuditQueue, w, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
