package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/SravanamCharan20/CodeClash/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgur *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := pgur.pool.QueryRow(ctx, "SELECT username, role FROM users WHERE id = $1", id)

	err := row.Scan(&user.Username, &user.Role)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.ErrUnexpectedDatabase, err)
		}
	}

	return user, nil
}

func (pgur *PostgresRepo) Close() {
	pgur.pool.Close()
}
