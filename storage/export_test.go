package storage

import "github.com/jackc/pgx/v5/pgxpool"

func (pgur *PostgresRepo) GetPool() *pgxpool.Pool {
	return pgur.pool
}
