package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Notifier forwards a human-readable line to the admin channel. Best
// effort: the recorder logs notification failures and keeps going.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Recorder is the worker-side handler: it persists every consumed audit
// event and pings the admin channel about fresh checkouts.
type Recorder struct {
	db       *sql.DB
	notifier Notifier
	logger   *slog.Logger
}

func NewRecorder(db *sql.DB, notifier Notifier, logger *slog.Logger) *Recorder {
	return &Recorder{
		db:       db,
		notifier: notifier,
		logger:   logger,
	}
}

func (r *Recorder) Handle(ctx context.Context, payload []byte) error {
	var event domain.AuditEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal audit event: %w", err)
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal event details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, customer_id, name, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), event.CustomerID, event.Name, details, event.Timestamp)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	r.logger.Info("audit event recorded", "event", event.Name, "customer_id", event.CustomerID)

	if event.Name == domain.EventCheckoutInitiated && r.notifier != nil {
		text := fmt.Sprintf("New order %v from customer %s, total %v. Waiting for payment.",
			event.Details["order_id"], event.CustomerID, event.Details["total"])
		if err := r.notifier.Notify(ctx, text); err != nil {
			r.logger.Error("failed to notify admin", "error", err, "customer_id", event.CustomerID)
		}
	}

	return nil
}
