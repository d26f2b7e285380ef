package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/frahmantamala/performance-management/internal/core/events"
)

// Entry is one persisted session lifecycle event: who signed in or out,
// which sign-ins failed, which navigations were denied.
type Entry struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	EventID    string    `gorm:"column:event_id"`
	EventType  string    `gorm:"column:event_type"`
	UserID     string    `gorm:"column:user_id"`
	Username   string    `gorm:"column:username"`
	Role       string    `gorm:"column:role"`
	Detail     string    `gorm:"column:detail"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Entry) TableName() string {
	return "session_audit"
}

type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	RecentForUser(ctx context.Context, userID string, limit int) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder subscribes to session lifecycle events and writes them to the
// audit table. Failures are logged; auditing never blocks sign-in.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
	}
}

// Subscribe registers the recorder for every session event type.
func (r *Recorder) Subscribe(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventSessionSignedIn,
		events.EventSessionSignedOut,
		events.EventSessionSignInFailed,
		events.EventNavigationDenied,
	} {
		bus.Subscribe(eventType, r.handle)
	}
}

func (r *Recorder) handle(ctx context.Context, event events.Event) error {
	entry := &Entry{
		EventID:    event.EventID(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
	}

	if data, ok := event.Payload().(map[string]interface{}); ok {
		entry.UserID = stringField(data, "user_id")
		entry.Username = stringField(data, "username")
		entry.Role = stringField(data, "role")

		if detail, err := json.Marshal(data); err == nil {
			entry.Detail = string(detail)
		}
	}

	if err := r.repo.Insert(ctx, entry); err != nil {
		r.logger.Error("failed to persist audit entry",
			"event_type", entry.EventType,
			"event_id", entry.EventID,
			"error", err)
		return err
	}

	return nil
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
