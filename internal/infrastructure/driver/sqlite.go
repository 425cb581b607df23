package driver

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// applied to every connection the pool opens
var sqliteParams = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_pragma=synchronous(NORMAL)",
	"_time_format=sqlite",
}

// NewSQLiteConn Returns a SQLite connection, dsn is a file path or URI.
//
// sqlite serializes writers anyway, the pool is capped to one connection so that
// transactions never fail with SQLITE_BUSY on lock upgrade. Times are written in a
// fixed layout, UTC values stored that way compare correctly as text.
func NewSQLiteConn(dsn string) (ITransactionalDB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite", dsn+sep+strings.Join(sqliteParams, "&"))
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	return &SQLWrapper{
		db:      conn,
		adapt:   sqliteAdapter,
		txAdapt: sqliteTxOptionAdapter,
	}, nil
}

func sqliteAdapter(query string) string {
	query = DollarPlaceholderPattern.ReplaceAllString(query, "?")
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}

// sqlite only knows serializable transactions
func sqliteTxOptionAdapter(opts *TxOptions) *sql.TxOptions {
	return nil
}

func isSQLiteDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
