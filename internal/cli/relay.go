package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/queue"
	"github.com/iliyamo/depot-yard/internal/repository"
	"github.com/iliyamo/depot-yard/internal/worker"
)

func newRelayCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Publish committed outbox messages to the broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := configFromContext(ctx)
			logger := loggerFromContext(ctx)

			db, err := openDatabase(cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()

			pub := queue.NewPublisher(cfg.AMQP.URL, logger)
			defer pub.Close()
			relay := worker.NewOutboxRelay(repository.NewOutboxRepo(db), pub, relayConfig(cfg.AMQP), logger)

			if once {
				n, err := relay.RunOnce(ctx)
				logger.Info("relayed", "count", n)
				return err
			}
			relay.Start()
			<-ctx.Done()
			relay.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "relay a single batch and exit")
	return cmd
}
