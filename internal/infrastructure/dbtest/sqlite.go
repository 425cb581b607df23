// Package dbtest opens throwaway databases carrying the service schema
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pot-code/learning-service/internal/infrastructure/driver"
	"github.com/pot-code/learning-service/internal/infrastructure/migrate"
	"github.com/stretchr/testify/require"
)

// NewSQLite open a migrated sqlite database in a temp dir, closed when the test ends
func NewSQLite(t testing.TB) driver.ITransactionalDB {
	t.Helper()

	conn, err := driver.NewSQLiteConn(filepath.Join(t.TempDir(), "learning.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close(context.Background())
	})
	require.NoError(t, migrate.Migrate(context.Background(), conn, driver.DriverSQLite))
	return conn
}
