// Package memory keeps vault state in process memory. Used for tests and
// ephemeral vaults.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dtroode/credvault/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type record struct {
	mu sync.Mutex
	c  model.Credential
}

type CredentialRepository struct {
	mu      sync.RWMutex
	records map[string]*record
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{records: make(map[string]*record)}
}

func (r *CredentialRepository) Insert(ctx context.Context, credential model.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[credential.ID]; ok {
		return model.ErrDuplicateID
	}
	r.records[credential.ID] = &record{c: clone(credential)}
	return nil
}

func (r *CredentialRepository) Get(ctx context.Context, id string) (model.Credential, error) {
	if err := ctx.Err(); err != nil {
		return model.Credential{}, err
	}

	rec, ok := r.lookup(id)
	if !ok {
		return model.Credential{}, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return clone(rec.c), nil
}

func (r *CredentialRepository) UpdateAccessStats(ctx context.Context, id string, accessedAt time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rec, ok := r.lookup(id)
	if !ok {
		return 0, model.ErrNotFound
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.c.AccessCount++
	at := accessedAt
	rec.c.LastAccessedAt = &at
	return rec.c.AccessCount, nil
}

func (r *CredentialRepository) Remove(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *CredentialRepository) ListByOwner(ctx context.Context, ownerID string, kind string) ([]model.CredentialSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	var out []model.CredentialSummary
	for _, rec := range recs {
		rec.mu.Lock()
		c := clone(rec.c)
		rec.mu.Unlock()

		if c.OwnerID != ownerID && c.OwnerID != model.SystemOwner {
			continue
		}
		if kind != "" && c.Kind != kind {
			continue
		}
		out = append(out, c.Summary())
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CredentialRepository) lookup(id string) (*record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

func clone(c model.Credential) model.Credential {
	c.Ciphertext = slices.Clone(c.Ciphertext)
	c.Tags = slices.Clone(c.Tags)
	if c.LastAccessedAt != nil {
		at := *c.LastAccessedAt
		c.LastAccessedAt = &at
	}
	return c
}
