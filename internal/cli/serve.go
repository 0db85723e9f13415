package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/allocator"
	"github.com/iliyamo/depot-yard/internal/config"
	"github.com/iliyamo/depot-yard/internal/handler"
	"github.com/iliyamo/depot-yard/internal/middleware"
	"github.com/iliyamo/depot-yard/internal/queue"
	"github.com/iliyamo/depot-yard/internal/repository"
	"github.com/iliyamo/depot-yard/internal/router"
	"github.com/iliyamo/depot-yard/internal/worker"
)

func newServeCmd() *cobra.Command {
	var noRelay bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, hold reaper and outbox relay",
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

			alloc := allocator.New(db, repository.NewGateRepo(db), allocator.Config{
				HoldTTL:      cfg.Yard.HoldTTL,
				SuggestLimit: cfg.Yard.SuggestLimit,
			}, logger)

			rdb := config.NewRedisClient(cfg.Redis)
			if rdb == nil {
				logger.Warn("redis unavailable; caching and rate limiting disabled", "addr", cfg.Redis.Address())
			} else {
				defer rdb.Close()
			}

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomw.Recover())
			e.Use(echomw.RequestID())
			e.Use(middleware.RequestLogger(logger))

			router.RegisterRoutes(e, &handler.HealthHandler{DB: db})
			router.RegisterYard(e, handler.NewYardHandler(alloc), cfg.JWT.Secret, router.YardMiddleware{
				RateLimit:  middleware.NewTokenBucket(cfg.RateLimit, rdb),
				Cache:      middleware.NewRedisCache(cfg.Cache, rdb),
				Invalidate: middleware.NewCacheInvalidator(cfg.Cache, rdb),
			})

			if cfg.Yard.ReaperInterval > 0 {
				reaper := worker.NewHoldReaper(alloc, cfg.Yard.ReaperInterval, logger)
				if rdb != nil && cfg.Cache.Enabled {
					reaper.OnReap(func(ctx context.Context, _ int64) {
						if _, err := middleware.InvalidateCache(ctx, rdb, cfg.Cache.Prefix); err != nil {
							logger.Warn("cache invalidation after reap failed", "err", err)
						}
					})
				}
				reaper.Start()
				defer reaper.Stop()
			}
			if !noRelay {
				pub := queue.NewPublisher(cfg.AMQP.URL, logger)
				defer pub.Close()
				relay := worker.NewOutboxRelay(repository.NewOutboxRepo(db), pub, relayConfig(cfg.AMQP), logger)
				relay.Start()
				defer relay.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", cfg.App.Address(), "env", cfg.App.Env)
				if err := e.Start(cfg.App.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down", "timeout", cfg.App.ShutdownTimeout)
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&noRelay, "no-relay", false, "do not run the outbox relay in this process")
	return cmd
}

func relayConfig(c config.AMQPConfig) worker.RelayConfig {
	return worker.RelayConfig{
		Interval:      c.RelayInterval,
		BatchSize:     c.RelayBatch,
		AuditQueue:    c.AuditQueue,
		MoveTaskQueue: c.MoveTaskQueue,
	}
}
