//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/credvault/internal/model"
	repo "github.com/dtroode/credvault/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "credvault_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/credvault_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func connect(t *testing.T) *repo.Connection {
	t.Helper()
	conn, err := repo.NewConection(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)

	t.Run("installation_repository", func(t *testing.T) {
		ir := repo.NewInstallationRepository(conn)

		first := model.Installation{Salt: []byte("0123456789abcdef"), KDF: []byte(`{"alg":"pbkdf2","iter":100000}`), Verifier: []byte("v1"), CreatedAt: time.Now()}
		saved, err := ir.Init(ctx, first)
		require.NoError(t, err)
		require.Equal(t, first.Salt, saved.Salt)

		second := model.Installation{Salt: []byte("fedcba9876543210"), KDF: []byte(`{"alg":"pbkdf2","iter":100000}`), Verifier: []byte("v2"), CreatedAt: time.Now()}
		kept, err := ir.Init(ctx, second)
		require.NoError(t, err)
		require.Equal(t, first.Salt, kept.Salt)
		require.Equal(t, first.Verifier, kept.Verifier)
	})

	t.Run("credential_repository", func(t *testing.T) {
		cr := repo.NewCredentialRepository(conn)
		c := model.Credential{
			ID:         "0011223344556677",
			Name:       "OpenAI API Key",
			Kind:       "api_key",
			Ciphertext: []byte("ct"),
			OwnerID:    "alice",
			Tags:       []string{"ai", "production"},
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, cr.Insert(ctx, c))
		require.ErrorIs(t, cr.Insert(ctx, c), model.ErrDuplicateID)

		got, err := cr.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Tags, got.Tags)
		assert.Nil(t, got.LastAccessedAt)

		at := time.Now().UTC().Truncate(time.Microsecond)
		count, err := cr.UpdateAccessStats(ctx, c.ID, at)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		got, err = cr.Get(ctx, c.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastAccessedAt)
		assert.True(t, at.Equal(*got.LastAccessedAt))

		_, err = cr.UpdateAccessStats(ctx, "missing", at)
		require.ErrorIs(t, err, model.ErrNotFound)

		list, err := cr.ListByOwner(ctx, "alice", "")
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = cr.ListByOwner(ctx, "alice", "database")
		require.NoError(t, err)
		require.Empty(t, list)

		removed, err := cr.Remove(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = cr.Remove(ctx, c.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = cr.Get(ctx, c.ID)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("audit_repository", func(t *testing.T) {
		ar := repo.NewAuditRepository(conn)

		var last int64
		for _, action := range []model.AuditAction{model.ActionCreate, model.ActionAccess, model.ActionDelete} {
			seq, err := ar.Append(ctx, model.AuditEntry{
				CredentialID: "abc", ActorID: "bob", Action: action, Outcome: model.OutcomeSuccess,
				SourceAddress: "10.0.0.1", Timestamp: time.Now(),
			})
			require.NoError(t, err)
			require.Greater(t, seq, last)
			last = seq
		}

		entries, err := ar.Query(ctx, model.AuditQuery{Limit: 2})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, model.ActionDelete, entries[0].Action)
		assert.Greater(t, entries[0].Seq, entries[1].Seq)

		entries, err = ar.Query(ctx, model.AuditQuery{Search: "BOB", Action: model.ActionAccess})
		require.NoError(t, err)
		require.Len(t, entries, 1)

		_, err = conn.Exec(ctx, `DELETE FROM audit_log`)
		require.Error(t, err)
	})
}

func TestCredentialRepository_ConcurrentAccessStats(t *testing.T) {
	ctx := context.Background()
	conn := connect(t)
	cr := repo.NewCredentialRepository(conn)

	c := model.Credential{ID: "concurrent000001", Name: "n", Kind: "k", Ciphertext: []byte("x"), OwnerID: "system", CreatedAt: time.Now()}
	require.NoError(t, cr.Insert(ctx, c))

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cr.UpdateAccessStats(ctx, c.ID, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := cr.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.AccessCount)
}
