package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/escrowdesk/backend/internal/escrow"
	"github.com/escrowdesk/backend/internal/metrics"
	"github.com/escrowdesk/backend/internal/models"
)

// Service is the state-machine contract the dispatcher drives.
type Service interface {
	Register(ctx context.Context, userID int64) error
	RequestDeposit(ctx context.Context, userID, amount int64) (*models.DepositClaim, error)
	ConfirmPayment(ctx context.Context, claimID string, userID int64) error
	Approve(ctx context.Context, claimID string, actorID int64) (*models.DepositClaim, int64, error)
	Reject(ctx context.Context, claimID string, actorID int64) (*models.DepositClaim, error)
	GetSummary(ctx context.Context, userID int64) (*escrow.Summary, error)
}

// Dispatcher maps inbound chat commands to state-machine calls and renders
// the replies. Each update is handled on its own goroutine; ordering between
// commands on the same claim is the store's job, not the dispatcher's.
type Dispatcher struct {
	svc        Service
	api        *tgbotapi.BotAPI
	payAddress string
	logger     *slog.Logger
}

func NewDispatcher(svc Service, api *tgbotapi.BotAPI, payAddress string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{svc: svc, api: api, payAddress: payAddress, logger: logger}
}

// Run consumes the long-poll update stream until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := d.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			d.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			go d.handle(ctx, update.Message)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	var reply string
	if msg.IsCommand() {
		reply = d.HandleCommand(ctx, msg.From.ID, msg.Command(), msg.CommandArguments())
	} else {
		reply = "ℹ️ Use /help for the list of commands."
	}
	if reply == "" {
		return
	}
	if _, err := d.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		d.logger.Warn("reply send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

// HandleCommand executes one command for the given actor and returns the
// reply text. It is transport-free so tests can drive it directly.
func (d *Dispatcher) HandleCommand(ctx context.Context, userID int64, command, args string) string {
	args = strings.TrimSpace(args)

	var reply string
	var err error
	switch command {
	case "start", "summary":
		reply, err = d.summary(ctx, userID)
	case "register":
		reply, err = d.register(ctx, userID)
	case "deposit":
		reply, err = d.deposit(ctx, userID, args)
	case "confirm":
		reply, err = d.confirm(ctx, userID, args)
	case "approve":
		reply, err = d.approve(ctx, userID, args)
	case "reject":
		reply, err = d.reject(ctx, userID, args)
	case "help":
		reply = helpText
	default:
		reply = "Unknown command. Use /help."
	}

	switch {
	case err == nil:
		metrics.CommandsTotal.WithLabelValues(command, "ok").Inc()
	case isDomainErr(err):
		metrics.CommandsTotal.WithLabelValues(command, "rejected").Inc()
		reply = renderDomainErr(err)
	default:
		metrics.CommandsTotal.WithLabelValues(command, "error").Inc()
		d.logger.Error("command failed", "command", command, "user_id", userID, "error", err)
		reply = "⚠️ Something went wrong. Please try again later."
	}
	return reply
}

const helpText = `🏦 Escrow commands:
/register — create your account
/deposit <amount> — request a deposit
/confirm <claim> — confirm you have paid
/summary — balance and deal count
/approve <claim> — operator only
/reject <claim> — operator only`

func (d *Dispatcher) summary(ctx context.Context, userID int64) (string, error) {
	sum, err := d.svc.GetSummary(ctx, userID)
	if errors.Is(err, escrow.ErrNotRegistered) {
		return "🚀 Welcome to Escrow Bot!\n\nYou are not registered yet. Use /register to start.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔹 Account Summary\n🆔 User ID: %d\n💰 Balance: %d\n📦 Total deals: %d",
		sum.UserID, sum.Balance, sum.Transactions), nil
}

func (d *Dispatcher) register(ctx context.Context, userID int64) (string, error) {
	err := d.svc.Register(ctx, userID)
	if errors.Is(err, escrow.ErrAlreadyRegistered) {
		return "✅ You are already registered!", nil
	}
	if err != nil {
		return "", err
	}
	return "✅ Registration successful!\n💰 Deposit money using /deposit <amount>.", nil
}

func (d *Dispatcher) deposit(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "❌ Usage: /deposit 500", nil
	}
	amount, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "❌ Usage: /deposit 500", nil
	}
	claim, err := d.svc.RequestDeposit(ctx, userID, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Deposit request sent!\n💰 Amount: %d\n🏦 Pay to: %s\n\nAfter payment, confirm with:\n/confirm %s",
		claim.Amount, d.payAddress, claim.ClaimID), nil
}

func (d *Dispatcher) confirm(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "❌ Usage: /confirm <claim>", nil
	}
	if err := d.svc.ConfirmPayment(ctx, args, userID); err != nil {
		return "", err
	}
	return "⌛ Waiting for operator approval...", nil
}

func (d *Dispatcher) approve(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "❌ Usage: /approve <claim>", nil
	}
	claim, newBalance, err := d.svc.Approve(ctx, args, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Deposit %s approved.\n👤 User %d credited, balance is now %d.",
		claim.ClaimID, claim.UserID, newBalance), nil
}

func (d *Dispatcher) reject(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "❌ Usage: /reject <claim>", nil
	}
	claim, err := d.svc.Reject(ctx, args, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("❌ Deposit %s rejected.", claim.ClaimID), nil
}

func isDomainErr(err error) bool {
	return errors.Is(err, escrow.ErrInvalidAmount) ||
		errors.Is(err, escrow.ErrNotRegistered) ||
		errors.Is(err, escrow.ErrAlreadyRegistered) ||
		errors.Is(err, escrow.ErrClaimNotFound) ||
		errors.Is(err, escrow.ErrClaimNotPending) ||
		errors.Is(err, escrow.ErrUnauthorized)
}

func renderDomainErr(err error) string {
	switch {
	case errors.Is(err, escrow.ErrInvalidAmount):
		return "❌ Invalid amount!"
	case errors.Is(err, escrow.ErrNotRegistered):
		return "❌ You are not registered. Use /register first."
	case errors.Is(err, escrow.ErrClaimNotFound):
		return "❌ Unknown deposit claim."
	case errors.Is(err, escrow.ErrClaimNotPending):
		return "❌ This deposit was already processed."
	case errors.Is(err, escrow.ErrUnauthorized):
		return "❌ You are not authorized!"
	default:
		return "❌ " + err.Error()
	}
}
