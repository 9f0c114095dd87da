// Package postgres provisions per-app schemas on a PostgreSQL server.
package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/1800agents/saki/pkg/domain/schema"
	"github.com/1800agents/saki/pkg/xerrors"
)

// Queryer is the subset of pgxpool.Pool this provisioner needs. DDL
// statements have no result rows, so Exec is enough.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

type provisioner struct {
	db Queryer
}

var _ schema.Provisioner = &provisioner{}

func New(db Queryer) schema.Provisioner {
	return &provisioner{db: db}
}

// FromPool is New for the concrete pool type, for wiring in main.
func FromPool(pool *pgxpool.Pool) schema.Provisioner {
	return New(pool)
}

func (p *provisioner) EnsureSchema(ctx context.Context, appID string) error {
	if _, err := p.db.Exec(
		ctx, `create schema if not exists `+quoteIdentifier(schema.Name(appID)),
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateSchema {
			// racing ensure. The schema exists, which is what was asked.
			return nil
		}
		return xerrors.WrapWithNote("ensuring schema for app "+appID, err)
	}
	return nil
}

func (p *provisioner) DropSchema(ctx context.Context, appID string) error {
	if _, err := p.db.Exec(
		ctx, `drop schema if exists `+quoteIdentifier(schema.Name(appID))+` cascade`,
	); err != nil {
		return xerrors.WrapWithNote("dropping schema for app "+appID, err)
	}
	return nil
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
