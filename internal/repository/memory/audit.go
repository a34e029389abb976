package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

// AuditRepository is an append-only in-memory audit log. Names are resolved
// against credentials at query time, like the SQL backends' join.
type AuditRepository struct {
	mu          sync.RWMutex
	seq         int64
	entries     []model.AuditEntry
	credentials *CredentialRepository
}

// NewAuditRepository creates an audit log. credentials may be nil, in which
// case entries carry no credential names.
func NewAuditRepository(credentials *CredentialRepository) *AuditRepository {
	return &AuditRepository{credentials: credentials}
}

func (r *AuditRepository) Append(ctx context.Context, entry model.AuditEntry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	entry.Seq = r.seq
	entry.CredentialName = ""
	r.entries = append(r.entries, entry)
	return entry.Seq, nil
}

func (r *AuditRepository) Query(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	snapshot := make([]model.AuditEntry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	limit := q.EffectiveLimit()
	search := strings.ToLower(q.Search)

	var out []model.AuditEntry
	for i := len(snapshot) - 1; i >= 0 && len(out) < limit; i-- {
		e := snapshot[i]
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.Outcome != "" && e.Outcome != q.Outcome {
			continue
		}
		if q.CredentialID != "" && e.CredentialID != q.CredentialID {
			continue
		}
		e.CredentialName = r.nameOf(e.CredentialID)
		if search != "" &&
			!strings.Contains(strings.ToLower(e.ActorID), search) &&
			!strings.Contains(strings.ToLower(string(e.Action)), search) &&
			!strings.Contains(strings.ToLower(e.CredentialName), search) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *AuditRepository) nameOf(id string) string {
	if r.credentials == nil || id == "" {
		return ""
	}
	rec, ok := r.credentials.lookup(id)
	if !ok {
		return ""
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.c.Name
}
