package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/credvault/internal/aead"
	"github.com/dtroode/credvault/internal/audit"
	"github.com/dtroode/credvault/internal/kdf"
	"github.com/dtroode/credvault/internal/logger"
	"github.com/dtroode/credvault/internal/metrics"
	"github.com/dtroode/credvault/internal/model"
)

// Defaults applied to operations whose caller does not identify itself.
const (
	DefaultActor         = model.SystemOwner
	DefaultSourceAddress = "127.0.0.1"
	DefaultUserAgent     = "system"
)

// idLength is the number of hex characters in a credential id.
const idLength = 16

// Vault is the public face of the credential vault. It is bound to one
// unlocked master key and is safe for concurrent use.
type Vault struct {
	credentials model.CredentialStore
	audit       *audit.Log
	cipher      *aead.Cipher
	key         *kdf.MasterKey
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func(name string, at time.Time) string
}

func NewVault(
	key *kdf.MasterKey,
	credentials model.CredentialStore,
	auditLog *audit.Log,
	logger *logger.Logger,
	m *metrics.Metrics,
) (*Vault, error) {
	c, err := aead.New(key)
	if err != nil {
		return nil, err
	}
	return &Vault{
		credentials: credentials,
		audit:       auditLog,
		cipher:      c,
		key:         key,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		newID:       generateID,
	}, nil
}

// Store encrypts params.Value and persists a new credential, returning its id.
func (s *Vault) Store(ctx context.Context, params model.StoreParams) (id string, err error) {
	start := time.Now()
	access := withDefaults(params.Access)
	defer func() { s.observe("store", start, err) }()

	owner := params.OwnerID
	if owner == "" {
		owner = model.SystemOwner
	}
	createdAt := s.now().UTC()
	id = s.newID(params.Name, createdAt)

	ciphertext, err := s.cipher.Encrypt(params.Value)
	if err != nil {
		s.logger.Error("failed to encrypt credential", "name", params.Name, "error", err)
		s.record(ctx, id, access, model.ActionCreate, model.OutcomeFailure)
		return "", model.NewError(model.KindEncryption, "store", id, err)
	}

	credential := model.Credential{
		ID:          id,
		Name:        params.Name,
		Kind:        params.Kind,
		Description: params.Description,
		Ciphertext:  ciphertext,
		OwnerID:     owner,
		Tags:        params.Tags,
		CreatedAt:   createdAt,
	}

	err = s.credentials.Insert(ctx, credential)
	if errors.Is(err, model.ErrDuplicateID) {
		s.logger.Warn("credential id collision, regenerating", "id", id)
		credential.ID = s.newID(params.Name, s.now().UTC())
		id = credential.ID
		err = s.credentials.Insert(ctx, credential)
	}
	if err != nil {
		s.record(ctx, id, access, model.ActionCreate, model.OutcomeFailure)
		if errors.Is(err, model.ErrDuplicateID) {
			return "", model.NewError(model.KindDuplicateID, "store", id, err)
		}
		return "", model.NewError(model.KindPersistence, "store", id, fmt.Errorf("failed to insert credential: %w", err))
	}

	s.record(ctx, id, access, model.ActionCreate, model.OutcomeSuccess)
	s.logger.Info("credential stored", "id", id, "kind", params.Kind, "owner_id", owner)
	return id, nil
}

// Retrieve decrypts a credential and updates its access bookkeeping.
func (s *Vault) Retrieve(ctx context.Context, id string, access model.Access) (secret model.Secret, err error) {
	start := time.Now()
	access = withDefaults(access)
	defer func() { s.observe("retrieve", start, err) }()

	credential, err := s.credentials.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		s.record(ctx, id, access, model.ActionAccessFailed, model.OutcomeFailure)
		return model.Secret{}, model.NewError(model.KindNotFound, "retrieve", id, err)
	}
	if err != nil {
		s.record(ctx, id, access, model.ActionAccessError, model.OutcomeFailure)
		return model.Secret{}, model.NewError(model.KindPersistence, "retrieve", id, fmt.Errorf("failed to get credential: %w", err))
	}

	plaintext, err := s.cipher.Decrypt(credential.Ciphertext)
	if err != nil {
		s.logger.Warn("credential failed authentication", "id", id, "actor_id", access.ActorID)
		s.record(ctx, id, access, model.ActionAccessError, model.OutcomeFailure)
		return model.Secret{}, model.NewError(model.KindDecryption, "retrieve", id, err)
	}

	accessedAt := s.now().UTC()
	count, err := s.credentials.UpdateAccessStats(ctx, id, accessedAt)
	if err != nil {
		clear(plaintext)
		if errors.Is(err, model.ErrNotFound) {
			// removed between read and bookkeeping
			s.record(ctx, id, access, model.ActionAccessFailed, model.OutcomeFailure)
			return model.Secret{}, model.NewError(model.KindNotFound, "retrieve", id, err)
		}
		s.record(ctx, id, access, model.ActionAccessError, model.OutcomeFailure)
		return model.Secret{}, model.NewError(model.KindPersistence, "retrieve", id, fmt.Errorf("failed to update access stats: %w", err))
	}

	s.record(ctx, id, access, model.ActionAccess, model.OutcomeSuccess)
	return model.Secret{
		ID:             credential.ID,
		Name:           credential.Name,
		Kind:           credential.Kind,
		Description:    credential.Description,
		Value:          plaintext,
		CreatedAt:      credential.CreatedAt,
		LastAccessedAt: accessedAt,
		AccessCount:    count,
	}, nil
}

// List returns metadata of credentials visible to ownerID, newest first.
// An empty kind matches every kind.
func (s *Vault) List(ctx context.Context, ownerID, kind string) (list []model.CredentialSummary, err error) {
	start := time.Now()
	defer func() { s.observe("list", start, err) }()

	if ownerID == "" {
		ownerID = model.SystemOwner
	}
	list, err = s.credentials.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return nil, model.NewError(model.KindPersistence, "list", "", fmt.Errorf("failed to list credentials: %w", err))
	}
	return list, nil
}

// Delete removes a credential and reports whether it existed.
func (s *Vault) Delete(ctx context.Context, id string, access model.Access) (removed bool, err error) {
	start := time.Now()
	access = withDefaults(access)
	defer func() { s.observe("delete", start, err) }()

	removed, err = s.credentials.Remove(ctx, id)
	if err != nil {
		s.record(ctx, id, access, model.ActionDelete, model.OutcomeFailure)
		return false, model.NewError(model.KindPersistence, "delete", id, fmt.Errorf("failed to remove credential: %w", err))
	}

	outcome := model.OutcomeSuccess
	if !removed {
		outcome = model.OutcomeFailure
	}
	s.record(ctx, id, access, model.ActionDelete, outcome)
	if removed {
		s.logger.Info("credential deleted", "id", id, "actor_id", access.ActorID)
	}
	return removed, nil
}

// AuditLog returns audit entries matching q, most recent first.
func (s *Vault) AuditLog(ctx context.Context, q model.AuditQuery) ([]model.AuditEntry, error) {
	return s.audit.Query(ctx, q)
}

// Close zeroes the master key. The vault cannot encrypt or decrypt afterwards.
func (s *Vault) Close() {
	s.key.Destroy()
}

func (s *Vault) record(ctx context.Context, id string, access model.Access, action model.AuditAction, outcome model.AuditOutcome) {
	s.audit.Append(ctx, model.AuditEntry{
		CredentialID:  id,
		ActorID:       access.ActorID,
		Action:        action,
		Outcome:       outcome,
		SourceAddress: access.SourceAddress,
		UserAgent:     access.UserAgent,
		Timestamp:     s.now(),
	})
}

func (s *Vault) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = model.KindOf(err).String()
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
}

func withDefaults(a model.Access) model.Access {
	if a.ActorID == "" {
		a.ActorID = DefaultActor
	}
	if a.SourceAddress == "" {
		a.SourceAddress = DefaultSourceAddress
	}
	if a.UserAgent == "" {
		a.UserAgent = DefaultUserAgent
	}
	return a
}

// generateID hashes name, creation time and fresh randomness, so two stores
// of the same name in the same instant still get different ids.
func generateID(name string, at time.Time) string {
	sum := sha256.Sum256([]byte(name + "|" + at.Format(time.RFC3339Nano) + "|" + uuid.NewString()))
	return hex.EncodeToString(sum[:])[:idLength]
}
