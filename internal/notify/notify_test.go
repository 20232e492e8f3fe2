package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/riverqueue/river"
)

type recordingSender struct {
	sent []NotificationArgs
	err  error
}

func (s *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, NotificationArgs{ChatID: chatID, Text: text})
	return nil
}

func TestSendWorkerDelivers(t *testing.T) {
	sender := &recordingSender{}
	w := NewSendWorker(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &river.Job[NotificationArgs]{Args: NotificationArgs{ChatID: 42, Text: "✅ Deposit approved"}}
	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].ChatID != 42 {
		t.Errorf("delivered: %+v", sender.sent)
	}
}

// A failed delivery must surface an error so the queue retries it; escrow
// state committed long before and is not involved.
func TestSendWorkerPropagatesFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("telegram: bad gateway")}
	w := NewSendWorker(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	job := &river.Job[NotificationArgs]{Args: NotificationArgs{ChatID: 42, Text: "hi"}}
	if err := w.Work(context.Background(), job); err == nil {
		t.Fatal("Work returned nil for failed delivery")
	}
}
