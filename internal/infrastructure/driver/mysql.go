package driver

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysql duplicate entry error number
const mysqlErrDuplicateEntry = 1062

// NewMySQLConn Returns a MySQL connection pool.
//
// time values are parsed into time.Time, and RowsAffected reports matched rows rather
// than changed rows so that conditional updates can be told apart from misses.
func NewMySQLConn(dsn string, cfg *DBConfig) (ITransactionalDB, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	mc.ParseTime = true
	mc.ClientFoundRows = true
	mc.Loc = time.UTC
	conn, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(int(cfg.MaxConn))
	return &SQLWrapper{
		db:      conn,
		adapt:   mysqlAdapter,
		txAdapt: sqlTxOptionAdapter,
	}, nil
}

func mysqlAdapter(query string) string {
	query = strings.Replace(query, "\"", "`", -1)
	query = DollarPlaceholderPattern.ReplaceAllString(query, "?")
	query = SpacePattern.ReplaceAllString(query, " ")
	return query
}

func isMySQLDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
