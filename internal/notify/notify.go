package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"

	"github.com/escrowdesk/backend/internal/metrics"
)

// NotificationArgs is the payload of a queued outbound message. Notifications
// are enqueued through the job queue rather than sent inline so that a
// state transition commits before any delivery attempt, and a delivery
// failure is retried without touching escrow state.
type NotificationArgs struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

func (NotificationArgs) Kind() string { return "send_notification" }

// Sender delivers a single message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TelegramSender sends via the Telegram bot API.
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(_ context.Context, chatID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendWorker is the River worker that drains the notification queue.
type SendWorker struct {
	river.WorkerDefaults[NotificationArgs]
	sender Sender
	logger *slog.Logger
}

func NewSendWorker(sender Sender, logger *slog.Logger) *SendWorker {
	return &SendWorker{sender: sender, logger: logger}
}

func (w *SendWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	args := job.Args
	if err := w.sender.Send(ctx, args.ChatID, args.Text); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		w.logger.Warn("notification delivery failed", "chat_id", args.ChatID, "error", err)
		return fmt.Errorf("send notification to %d: %w", args.ChatID, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}

// Outbox enqueues notifications. EnqueueTx inserts the job within the given
// transaction, so the notification becomes visible to workers only if the
// transaction commits.
type Outbox struct {
	client *river.Client[pgx.Tx]
}

func NewOutbox(client *river.Client[pgx.Tx]) *Outbox {
	return &Outbox{client: client}
}

func (o *Outbox) Enqueue(ctx context.Context, args NotificationArgs) error {
	_, err := o.client.Insert(ctx, args, nil)
	return err
}

func (o *Outbox) EnqueueTx(ctx context.Context, tx pgx.Tx, args NotificationArgs) error {
	_, err := o.client.InsertTx(ctx, tx, args, nil)
	return err
}
