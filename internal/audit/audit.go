// Package audit records vault actions in an append-only log.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/credvault/internal/logger"
	"github.com/dtroode/credvault/internal/metrics"
	"github.com/dtroode/credvault/internal/model"
)

// DefaultAppendTimeout bounds a single durable audit write.
const DefaultAppendTimeout = 5 * time.Second

type Log struct {
	store   model.AuditStore
	logger  *logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

func New(store model.AuditStore, logger *logger.Logger, m *metrics.Metrics, timeout time.Duration) *Log {
	if timeout <= 0 {
		timeout = DefaultAppendTimeout
	}
	return &Log{
		store:   store,
		logger:  logger,
		metrics: m,
		timeout: timeout,
		now:     time.Now,
	}
}

// Append persists entry and returns its sequence number, or 0 when the write
// failed. Failures are logged and counted, never returned.
//
// The write ignores ctx cancellation and is bounded by the log timeout.
func (l *Log) Append(ctx context.Context, entry model.AuditEntry) int64 {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	seq, err := l.store.Append(writeCtx, entry)
	if err != nil {
		l.metrics.AuditWriteFailed()
		l.logger.Warn("failed to write audit entry",
			"credential_id", entry.CredentialID,
			"actor_id", entry.ActorID,
			"action", entry.Action,
			"outcome", entry.Outcome,
			"error", err,
		)
		return 0
	}

	l.logger.Debug("audit entry written", "seq", seq, "action", entry.Action, "outcome", entry.Outcome)
	return seq
}

// Query returns entries matching q, most recent first.
func (l *Log) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, error) {
	entries, err := l.store.Query(ctx, q)
	if err != nil {
		return nil, model.NewError(model.KindPersistence, "audit query", "", fmt.Errorf("failed to query audit log: %w", err))
	}
	return entries, nil
}
