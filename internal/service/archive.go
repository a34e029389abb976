package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/credvault/internal/audit"
	"github.com/dtroode/credvault/internal/logger"
	"github.com/dtroode/credvault/internal/model"
)

var (
	// ErrNothingToArchive is returned when the query selects no entries.
	ErrNothingToArchive = errors.New("no audit entries to archive")
	// ErrArchiveExists is returned instead of overwriting an archive object.
	ErrArchiveExists = errors.New("audit archive already exists")
)

// AuditArchive copies audit entries to object storage as JSON lines.
type AuditArchive struct {
	audit   *audit.Log
	storage model.Storage
	logger  *logger.Logger
	now     func() time.Time
}

func NewAuditArchive(auditLog *audit.Log, storage model.Storage, logger *logger.Logger) *AuditArchive {
	return &AuditArchive{
		audit:   auditLog,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Export writes the entries selected by q, oldest first, and returns the
// object key.
func (a *AuditArchive) Export(ctx context.Context, q model.AuditQuery) (string, error) {
	entries, err := a.audit.Query(ctx, q)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNothingToArchive
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	var maxSeq int64
	for i := len(entries) - 1; i >= 0; i-- {
		if err := enc.Encode(entries[i]); err != nil {
			return "", fmt.Errorf("failed to encode audit entry: %w", err)
		}
		maxSeq = max(maxSeq, entries[i].Seq)
	}

	key := fmt.Sprintf("audit/%s-%d.jsonl", a.now().UTC().Format("20060102T150405Z"), maxSeq)
	exists, err := a.storage.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to check archive: %w", err)
	}
	if exists {
		return "", fmt.Errorf("%w: %s", ErrArchiveExists, key)
	}

	if err := a.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	a.logger.Info("audit archive exported", "key", key, "entries", len(entries), "max_seq", maxSeq)
	return key, nil
}
