package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/notify"
	"github.com/escrowdesk/backend/internal/repository"
)

// AccountStore is the minimal account persistence interface for the state
// machine. CreditBalance must be atomic at the store level.
type AccountStore interface {
	Create(ctx context.Context, userID int64) (created bool, err error)
	GetByID(ctx context.Context, userID int64) (*models.Account, error)
	CreditBalance(ctx context.Context, tx pgx.Tx, userID, amount int64) (newBalance int64, err error)
}

// DepositStore is the minimal deposit-claim persistence interface.
// MarkDecided must be a store-level compare-and-set on status.
type DepositStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, c *models.DepositClaim) error
	GetByID(ctx context.Context, claimID string) (*models.DepositClaim, error)
	MarkDecided(ctx context.Context, tx pgx.Tx, claimID, status string) (*models.DepositClaim, error)
}

// TxLogStore is the append-only transaction log.
type TxLogStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.TxLogEntry) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// Outbox enqueues outbound notifications. EnqueueTx ties the notification to
// the caller's transaction so it is delivered only after commit.
type Outbox interface {
	Enqueue(ctx context.Context, args notify.NotificationArgs) error
	EnqueueTx(ctx context.Context, tx pgx.Tx, args notify.NotificationArgs) error
}

// Service is the deposit state machine. Every transition is validated against
// persisted state and executed through the store's atomic operations; the
// service never reads a status or balance and writes it back.
type Service struct {
	accounts  AccountStore
	deposits  DepositStore
	txlog     TxLogStore
	outbox    Outbox
	operators map[int64]struct{}
	logger    *slog.Logger
}

func NewService(accounts AccountStore, deposits DepositStore, txlog TxLogStore, outbox Outbox, operatorIDs []int64, logger *slog.Logger) *Service {
	ops := make(map[int64]struct{}, len(operatorIDs))
	for _, id := range operatorIDs {
		ops[id] = struct{}{}
	}
	return &Service{
		accounts:  accounts,
		deposits:  deposits,
		txlog:     txlog,
		outbox:    outbox,
		operators: ops,
		logger:    logger,
	}
}

// Summary is the read-only account view returned by GetSummary.
type Summary struct {
	UserID       int64 `json:"user_id"`
	Balance      int64 `json:"balance"`
	Transactions int64 `json:"transactions"`
}

// IsOperator reports whether id is a member of the operator set.
func (s *Service) IsOperator(id int64) bool {
	_, ok := s.operators[id]
	return ok
}

// NewClaimID generates a claim identifier. The token is random, never derived
// from the claim's content, so two deposits of the same amount by the same
// user get distinct IDs.
func NewClaimID() string {
	return "DEP-" + strings.ToUpper(uuid.New().String()[:8])
}

// Register creates an account with zero balance. Returns ErrAlreadyRegistered
// if the account exists; the existing account is untouched.
func (s *Service) Register(ctx context.Context, userID int64) error {
	created, err := s.accounts.Create(ctx, userID)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if !created {
		return ErrAlreadyRegistered
	}
	s.logger.Info("account registered", "user_id", userID)
	return nil
}

// RequestDeposit creates a pending claim and alerts the operators. The claim
// is the effect; the operator alert is best-effort and never fails the
// request once the claim is persisted.
func (s *Service) RequestDeposit(ctx context.Context, userID, amount int64) (*models.DepositClaim, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.accounts.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	claim := &models.DepositClaim{
		ClaimID: NewClaimID(),
		UserID:  userID,
		Amount:  amount,
		Status:  models.DepositPending,
	}
	for attempt := 0; ; attempt++ {
		err := s.deposits.Create(ctx, claim)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateClaimID) && attempt < 2 {
			claim.ClaimID = NewClaimID()
			continue
		}
		return nil, fmt.Errorf("create claim: %w", err)
	}
	s.logger.Info("deposit requested", "claim_id", claim.ClaimID, "user_id", userID, "amount", amount)

	alert := fmt.Sprintf("🔔 New deposit request\n👤 User: %d\n💰 Amount: %d\n\nApprove: /approve %s\nReject: /reject %s",
		userID, amount, claim.ClaimID, claim.ClaimID)
	if err := s.notifyOperators(ctx, alert); err != nil {
		s.logger.Warn("operator alert enqueue failed", "claim_id", claim.ClaimID, "error", err)
	}
	return claim, nil
}

// ConfirmPayment marks nothing; it reminds the operators that the user claims
// to have paid. The claim must exist, belong to userID and still be pending.
func (s *Service) ConfirmPayment(ctx context.Context, claimID string, userID int64) error {
	claim, err := s.deposits.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("lookup claim: %w", err)
	}
	if claim.UserID != userID {
		return ErrClaimNotFound
	}
	if claim.Status != models.DepositPending {
		return ErrClaimNotPending
	}

	reminder := fmt.Sprintf("🔔 User %d confirmed payment for %s (amount %d)\n\nApprove: /approve %s\nReject: /reject %s",
		userID, claim.ClaimID, claim.Amount, claim.ClaimID, claim.ClaimID)
	if err := s.notifyOperators(ctx, reminder); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

// Approve transitions a pending claim to approved and credits the owner's
// balance by the claim amount. The status compare-and-set, the balance
// increment, the log entry and the user notification are one transaction:
// either all commit or none are visible. Of two racing approvals exactly one
// observes pending; the loser gets ErrClaimNotPending.
func (s *Service) Approve(ctx context.Context, claimID string, actorID int64) (*models.DepositClaim, int64, error) {
	if !s.IsOperator(actorID) {
		return nil, 0, ErrUnauthorized
	}
	tx, err := s.deposits.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	claim, err := s.deposits.MarkDecided(ctx, tx, claimID, models.DepositApproved)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, s.classifyDecideMiss(ctx, claimID)
		}
		return nil, 0, fmt.Errorf("mark approved: %w", err)
	}

	newBalance, err := s.accounts.CreditBalance(ctx, tx, claim.UserID, claim.Amount)
	if err != nil {
		return nil, 0, fmt.Errorf("credit balance: %w", err)
	}
	if err := s.txlog.CreateTx(ctx, tx, &models.TxLogEntry{
		ID:           uuid.New(),
		UserID:       claim.UserID,
		ClaimID:      &claim.ClaimID,
		EntryType:    models.TxEntryDepositCredit,
		Amount:       claim.Amount,
		BalanceAfter: newBalance,
	}); err != nil {
		return nil, 0, fmt.Errorf("log credit: %w", err)
	}
	if err := s.outbox.EnqueueTx(ctx, tx, notify.NotificationArgs{
		ChatID: claim.UserID,
		Text:   fmt.Sprintf("✅ Deposit %s approved!\n💰 New balance: %d", claim.ClaimID, newBalance),
	}); err != nil {
		return nil, 0, fmt.Errorf("enqueue approval notice: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("deposit approved", "claim_id", claim.ClaimID, "user_id", claim.UserID, "amount", claim.Amount, "operator_id", actorID)
	return claim, newBalance, nil
}

// Reject transitions a pending claim to rejected. No balance change and no
// transaction log entry, since no money moved.
func (s *Service) Reject(ctx context.Context, claimID string, actorID int64) (*models.DepositClaim, error) {
	if !s.IsOperator(actorID) {
		return nil, ErrUnauthorized
	}
	tx, err := s.deposits.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	claim, err := s.deposits.MarkDecided(ctx, tx, claimID, models.DepositRejected)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyDecideMiss(ctx, claimID)
		}
		return nil, fmt.Errorf("mark rejected: %w", err)
	}
	if err := s.outbox.EnqueueTx(ctx, tx, notify.NotificationArgs{
		ChatID: claim.UserID,
		Text:   fmt.Sprintf("❌ Deposit %s was rejected.", claim.ClaimID),
	}); err != nil {
		return nil, fmt.Errorf("enqueue rejection notice: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("deposit rejected", "claim_id", claim.ClaimID, "user_id", claim.UserID, "operator_id", actorID)
	return claim, nil
}

// GetSummary returns the user's balance and transaction count. Read-only.
func (s *Service) GetSummary(ctx context.Context, userID int64) (*Summary, error) {
	acc, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	count, err := s.txlog.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	return &Summary{UserID: userID, Balance: acc.Balance, Transactions: count}, nil
}

// classifyDecideMiss distinguishes an unknown claim from one that lost the
// compare-and-set because it was already decided.
func (s *Service) classifyDecideMiss(ctx context.Context, claimID string) error {
	if _, err := s.deposits.GetByID(ctx, claimID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("lookup claim: %w", err)
	}
	return ErrClaimNotPending
}

func (s *Service) notifyOperators(ctx context.Context, text string) error {
	for id := range s.operators {
		if err := s.outbox.Enqueue(ctx, notify.NotificationArgs{ChatID: id, Text: text}); err != nil {
			return err
		}
	}
	return nil
}
