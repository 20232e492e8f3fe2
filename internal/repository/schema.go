package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the escrow tables if they do not exist. River manages
// its own queue tables via rivermigrate.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id    BIGINT PRIMARY KEY,
			balance    BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS deposits (
			claim_id   TEXT PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES accounts(user_id),
			amount     BIGINT NOT NULL CHECK (amount > 0),
			status     TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			decided_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS deposits_user_idx ON deposits (user_id);

		CREATE TABLE IF NOT EXISTS transactions (
			id            UUID PRIMARY KEY,
			user_id       BIGINT NOT NULL REFERENCES accounts(user_id),
			claim_id      TEXT REFERENCES deposits(claim_id),
			entry_type    TEXT NOT NULL,
			amount        BIGINT NOT NULL,
			balance_after BIGINT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id);
	`)
	return err
}
