package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sealvault/internal/dbx"
	"github.com/dmitrijs2005/sealvault/internal/server/repositories/records"
)

// RepositoryManager vends SQL-backed repositories and prepares their schema.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
}
