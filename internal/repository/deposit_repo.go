package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/escrowdesk/backend/internal/models"
)

// ErrDuplicateClaimID is returned when a generated claim ID collides with an
// existing one. The caller regenerates and retries.
var ErrDuplicateClaimID = errors.New("claim id already exists")

type DepositRepo struct {
	pool *pgxpool.Pool
}

func NewDepositRepo(pool *pgxpool.Pool) *DepositRepo {
	return &DepositRepo{pool: pool}
}

func (r *DepositRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *DepositRepo) Create(ctx context.Context, c *models.DepositClaim) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO deposits (claim_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ClaimID, c.UserID, c.Amount, c.Status).Scan(&c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateClaimID
		}
		return err
	}
	return nil
}

func (r *DepositRepo) GetByID(ctx context.Context, claimID string) (*models.DepositClaim, error) {
	var c models.DepositClaim
	err := r.pool.QueryRow(ctx, `
		SELECT claim_id, user_id, amount, status, created_at, decided_at
		FROM deposits WHERE claim_id = $1
	`, claimID).Scan(&c.ClaimID, &c.UserID, &c.Amount, &c.Status, &c.CreatedAt, &c.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkDecided moves a claim from pending to the given terminal status as a
// single conditional UPDATE. If the claim is missing or was already decided
// the UPDATE matches no row and pgx.ErrNoRows is returned, so of two racing
// decisions exactly one commits. Call within a transaction.
func (r *DepositRepo) MarkDecided(ctx context.Context, tx pgx.Tx, claimID, status string) (*models.DepositClaim, error) {
	var c models.DepositClaim
	err := tx.QueryRow(ctx, `
		UPDATE deposits SET status = $2, decided_at = now()
		WHERE claim_id = $1 AND status = $3
		RETURNING claim_id, user_id, amount, status, created_at, decided_at
	`, claimID, status, models.DepositPending).Scan(&c.ClaimID, &c.UserID, &c.Amount, &c.Status, &c.CreatedAt, &c.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
