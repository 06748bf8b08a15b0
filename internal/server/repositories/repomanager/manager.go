// Package repomanager vends repository implementations bound to a DBTX and
// exposes the schema migration hook. Services receive a RepositoryManager so
// fakes can stand in for the whole storage layer.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/rendlabs/rend/internal/dbx"
	"github.com/rendlabs/rend/internal/server/repositories/nonces"
	"github.com/rendlabs/rend/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Nonces(db dbx.DBTX) nonces.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
