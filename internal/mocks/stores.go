// Package mocks provides testify mocks of the model store interfaces.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/credvault/internal/model"
)

type CredentialStore struct {
	mock.Mock
}

var _ model.CredentialStore = (*CredentialStore)(nil)

func (m *CredentialStore) Insert(ctx context.Context, credential model.Credential) error {
	args := m.Called(ctx, credential)
	return args.Error(0)
}

func (m *CredentialStore) Get(ctx context.Context, id string) (model.Credential, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *CredentialStore) UpdateAccessStats(ctx context.Context, id string, accessedAt time.Time) (int64, error) {
	args := m.Called(ctx, id, accessedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CredentialStore) Remove(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *CredentialStore) ListByOwner(ctx context.Context, ownerID string, kind string) ([]model.CredentialSummary, error) {
	args := m.Called(ctx, ownerID, kind)
	var out []model.CredentialSummary
	if v := args.Get(0); v != nil {
		out = v.([]model.CredentialSummary)
	}
	return out, args.Error(1)
}

type AuditStore struct {
	mock.Mock
}

var _ model.AuditStore = (*AuditStore)(nil)

func (m *AuditStore) Append(ctx context.Context, entry model.AuditEntry) (int64, error) {
	args := m.Called(ctx, entry)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AuditStore) Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, error) {
	args := m.Called(ctx, query)
	var out []model.AuditEntry
	if v := args.Get(0); v != nil {
		out = v.([]model.AuditEntry)
	}
	return out, args.Error(1)
}

type InstallationStore struct {
	mock.Mock
}

var _ model.InstallationStore = (*InstallationStore)(nil)

func (m *InstallationStore) Get(ctx context.Context) (model.Installation, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Installation), args.Error(1)
}

func (m *InstallationStore) Init(ctx context.Context, inst model.Installation) (model.Installation, error) {
	args := m.Called(ctx, inst)
	return args.Get(0).(model.Installation), args.Error(1)
}

type Storage struct {
	mock.Mock
}

var _ model.Storage = (*Storage)(nil)

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64) error {
	args := m.Called(ctx, key, reader, size)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}
