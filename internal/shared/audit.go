package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertAuditLog = `
INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES (@actor, @action, @entity, @entity_id, @meta, @at)`

// AuditLog is one row of audit_logs. A zero ActorID is taken from the
// identity in context; a zero At becomes the current time.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	switch {
	case l.Action == "":
		return errors.New("audit: action required")
	case l.Entity == "" || l.EntityID == "":
		return errors.New("audit: entity reference required")
	}
	return nil
}

// AuditLogger appends rows to audit_logs. Services call it after their
// transaction commits and only log its failures.
type AuditLogger struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewAuditLogger returns a logger writing through pool.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// Record inserts entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit: logger not initialised")
	}
	if entry.ActorID == 0 {
		entry.ActorID = ActorID(ctx)
	}
	if entry.At.IsZero() {
		entry.At = l.now()
	}
	if entry.Meta == nil {
		entry.Meta = map[string]any{}
	}
	if err := entry.validate(); err != nil {
		return err
	}
	_, err := l.pool.Exec(ctx, insertAuditLog, pgx.NamedArgs{
		"actor":     pgtype.Int8{Int64: entry.ActorID, Valid: entry.ActorID > 0},
		"action":    entry.Action,
		"entity":    entry.Entity,
		"entity_id": entry.EntityID,
		"meta":      entry.Meta,
		"at":        entry.At,
	})
	return err
}
