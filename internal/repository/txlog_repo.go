package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escrowdesk/backend/internal/models"
)

type TxLogRepo struct {
	pool *pgxpool.Pool
}

func NewTxLogRepo(pool *pgxpool.Pool) *TxLogRepo {
	return &TxLogRepo{pool: pool}
}

// CreateTx appends a transaction log entry inside the caller's transaction so
// the entry commits together with the balance movement it records.
func (r *TxLogRepo) CreateTx(ctx context.Context, tx pgx.Tx, e *models.TxLogEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, claim_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.UserID, e.ClaimID, e.EntryType, e.Amount, e.BalanceAfter)
	return err
}

func (r *TxLogRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions WHERE user_id = $1
	`, userID).Scan(&n)
	return n, err
}

func (r *TxLogRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.TxLogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, claim_id, entry_type, amount, balance_after, created_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TxLogEntry
	for rows.Next() {
		var e models.TxLogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.ClaimID, &e.EntryType, &e.Amount, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
