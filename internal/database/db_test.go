package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/depot-yard/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "mysql with password",
			cfg:  config.DBConfig{Driver: DriverMySQL, User: "yard", Pass: "secret", Host: "db", Port: "3306", Name: "depot"},
			want: "yard:secret@tcp(db:3306)/depot?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
		},
		{
			name: "mysql without password",
			cfg:  config.DBConfig{Driver: DriverMySQL, User: "root", Host: "localhost", Port: "3306", Name: "depot"},
			want: "root@tcp(localhost:3306)/depot?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true",
		},
		{
			name: "postgres default sslmode",
			cfg:  config.DBConfig{Driver: DriverPostgres, User: "yard", Pass: "p@ss", Host: "pg", Port: "5432", Name: "depot"},
			want: "postgres://yard:p%40ss@pg:5432/depot?sslmode=disable",
		},
		{
			name: "sqlite memory",
			cfg:  config.DBConfig{Driver: DriverSQLite},
			want: ":memory:?_foreign_keys=on&_busy_timeout=5000",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.DBConfig{Driver: DriverPostgres, DSN: "postgres://x@y/z", Name: "ignored"},
			want: "postgres://x@y/z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDSN_UnknownDriver(t *testing.T) {
	_, err := DSN(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpenAndMigrate_SQLite(t *testing.T) {
	db, err := Open(config.DBConfig{Driver: DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(db))
	// second run is a no-op
	require.NoError(t, Migrate(db))

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM placements`))
	assert.Equal(t, 0, n)
}
