package cli

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/config"
	"github.com/iliyamo/depot-yard/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			db, err := openDatabase(configFromContext(cmd.Context()).DB)
			if err != nil {
				return err
			}
			defer db.Close()
			logger.Info("migrations applied", "driver", db.DriverName())
			return nil
		},
	}
}

// openDatabase opens the configured database and brings its schema up to
// date.
func openDatabase(cfg config.DBConfig) (*sqlx.DB, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
