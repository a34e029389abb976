package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCredentialRepository(t *testing.T) {
	db := &Connection{}
	repo := NewCredentialRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewAuditRepository(t *testing.T) {
	db := &Connection{}
	repo := NewAuditRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewInstallationRepository(t *testing.T) {
	db := &Connection{}
	repo := NewInstallationRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestConnection_PingWithoutPool(t *testing.T) {
	conn := &Connection{}

	assert.Error(t, conn.Ping(t.Context()))
	assert.NoError(t, conn.Close())
}
