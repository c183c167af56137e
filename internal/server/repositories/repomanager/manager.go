package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediashare/internal/dbx"
	"github.com/dmitrijs2005/mediashare/internal/server/repositories/accounts"
)

// RepositoryManager vends repositories bound to either the pool or a
// transaction, so services can choose per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}
