package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/credvault/internal/model"
)

func TestCredentialRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()

	c := model.Credential{ID: "0011223344556677", Name: "db", Kind: "database_url", Ciphertext: []byte("ct"), OwnerID: "alice", Tags: []string{"prod"}, CreatedAt: time.Now()}
	require.NoError(t, repo.Insert(ctx, c))
	require.ErrorIs(t, repo.Insert(ctx, c), model.ErrDuplicateID)

	got, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Ciphertext, got.Ciphertext)
	assert.Nil(t, got.LastAccessedAt)

	// returned values do not alias stored state
	got.Ciphertext[0] = 'X'
	got.Tags[0] = "changed"
	again, err := repo.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("ct"), again.Ciphertext)
	assert.Equal(t, []string{"prod"}, again.Tags)

	at := time.Now()
	n, err := repo.UpdateAccessStats(ctx, c.ID, at)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	again, err = repo.Get(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, again.LastAccessedAt)
	assert.True(t, at.Equal(*again.LastAccessedAt))

	_, err = repo.UpdateAccessStats(ctx, "missing", at)
	require.ErrorIs(t, err, model.ErrNotFound)

	removed, err := repo.Remove(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Remove(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.Get(ctx, c.ID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCredentialRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()
	base := time.Now()

	creds := []model.Credential{
		{ID: "a", Name: "shared", Kind: "api_key", OwnerID: model.SystemOwner, CreatedAt: base},
		{ID: "b", Name: "alice-db", Kind: "database_url", OwnerID: "alice", CreatedAt: base.Add(time.Second)},
		{ID: "c", Name: "bob-key", Kind: "api_key", OwnerID: "bob", CreatedAt: base.Add(2 * time.Second)},
		{ID: "d", Name: "alice-key", Kind: "api_key", OwnerID: "alice", CreatedAt: base.Add(3 * time.Second)},
	}
	for _, c := range creds {
		require.NoError(t, repo.Insert(ctx, c))
	}

	list, err := repo.ListByOwner(ctx, "alice", "")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"d", "b", "a"}, ids)

	list, err = repo.ListByOwner(ctx, "alice", "api_key")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d", list[0].ID)
	assert.Equal(t, "a", list[1].ID)

	list, err = repo.ListByOwner(ctx, "carol", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
}

func TestCredentialRepository_ConcurrentAccessStats(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository()

	const ids, perID = 4, 100
	for i := 0; i < ids; i++ {
		require.NoError(t, repo.Insert(ctx, model.Credential{ID: fmt.Sprintf("id-%d", i), OwnerID: model.SystemOwner, CreatedAt: time.Now()}))
	}

	var wg sync.WaitGroup
	for i := 0; i < ids; i++ {
		for j := 0; j < perID; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := repo.UpdateAccessStats(ctx, id, time.Now())
				assert.NoError(t, err)
			}(fmt.Sprintf("id-%d", i))
		}
	}
	wg.Wait()

	for i := 0; i < ids; i++ {
		got, err := repo.Get(ctx, fmt.Sprintf("id-%d", i))
		require.NoError(t, err)
		assert.Equal(t, int64(perID), got.AccessCount)
	}
}

func TestCredentialRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewCredentialRepository()
	require.ErrorIs(t, repo.Insert(ctx, model.Credential{ID: "x"}), context.Canceled)
	_, err := repo.Get(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	creds := NewCredentialRepository()
	require.NoError(t, creds.Insert(ctx, model.Credential{ID: "abc", Name: "Production DB", OwnerID: "alice", CreatedAt: time.Now()}))
	repo := NewAuditRepository(creds)

	entries := []model.AuditEntry{
		{CredentialID: "abc", ActorID: "alice", Action: model.ActionCreate, Outcome: model.OutcomeSuccess},
		{CredentialID: "abc", ActorID: "bob", Action: model.ActionAccess, Outcome: model.OutcomeSuccess},
		{CredentialID: "zzz", ActorID: "mallory", Action: model.ActionAccessFailed, Outcome: model.OutcomeFailure},
		{CredentialID: "abc", ActorID: "alice", Action: model.ActionDelete, Outcome: model.OutcomeSuccess},
	}
	var last int64
	for _, e := range entries {
		seq, err := repo.Append(ctx, e)
		require.NoError(t, err)
		require.Greater(t, seq, last)
		last = seq
	}

	all, err := repo.Query(ctx, model.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, model.ActionDelete, all[0].Action)
	assert.Equal(t, "Production DB", all[0].CredentialName)
	assert.Empty(t, all[1].CredentialName)

	limited, err := repo.Query(ctx, model.AuditQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(4), limited[0].Seq)

	failures, err := repo.Query(ctx, model.AuditQuery{Outcome: model.OutcomeFailure})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "mallory", failures[0].ActorID)

	byName, err := repo.Query(ctx, model.AuditQuery{Search: "production"})
	require.NoError(t, err)
	assert.Len(t, byName, 3)

	byActor, err := repo.Query(ctx, model.AuditQuery{Search: "BOB", CredentialID: "abc"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, model.ActionAccess, byActor[0].Action)

	// the log outlives its credentials
	_, err = creds.Remove(ctx, "abc")
	require.NoError(t, err)
	all, err = repo.Query(ctx, model.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Empty(t, all[0].CredentialName)
}

func TestAuditRepository_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditRepository(nil)

	const n = 200
	seqs := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.Append(ctx, model.AuditEntry{ActorID: "system", Action: model.ActionAccess, Outcome: model.OutcomeSuccess})
			assert.NoError(t, err)
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool, n)
	for s := range seqs {
		assert.False(t, seen[s], "duplicate seq %d", s)
		seen[s] = true
	}
	assert.Len(t, seen, n)

	all, err := repo.Query(ctx, model.AuditQuery{Limit: n})
	require.NoError(t, err)
	require.Len(t, all, n)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Seq, all[i].Seq)
	}
}

func TestInstallationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInstallationRepository()

	_, err := repo.Get(ctx)
	require.ErrorIs(t, err, model.ErrNotFound)

	first, err := repo.Init(ctx, model.Installation{Salt: []byte("one"), Verifier: []byte("v1")})
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), first.Salt)

	second, err := repo.Init(ctx, model.Installation{Salt: []byte("two"), Verifier: []byte("v2")})
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), second.Salt)
	assert.Equal(t, []byte("v1"), second.Verifier)
}
