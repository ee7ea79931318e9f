package catalogue

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

const postgresMaxConns = 4

func openPostgres(ctx context.Context, dsn string) (*sql.DB, func(), error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.MaxConns = postgresMaxConns
	pc.ConnConfig.RuntimeParams["application_name"] = "xia2pipe"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres catalogue: %w", err)
	}
	return stdlib.OpenDBFromPool(pool), pool.Close, nil
}
