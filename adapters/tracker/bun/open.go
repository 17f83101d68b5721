package trackerbun

import (
	"database/sql"

	"github.com/goliatone/go-report/export"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenSQLite opens a SQLite database for the tracker. An empty DSN uses a
// shared in-memory database.
func OpenSQLite(dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, export.NewError(export.KindInternal, "open sqlite failed", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
