package model

import (
	"context"
	"time"
)

// SystemOwner is the reserved owner whose credentials are visible to every caller.
const SystemOwner = "system"

// CredentialStore defines persistence operations for credentials.
// Implementations must keep UpdateAccessStats and Remove atomic per id.
type CredentialStore interface {
	Insert(ctx context.Context, credential Credential) error
	Get(ctx context.Context, id string) (Credential, error)
	UpdateAccessStats(ctx context.Context, id string, accessedAt time.Time) (int64, error)
	Remove(ctx context.Context, id string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, kind string) ([]CredentialSummary, error)
}

// Credential represents a stored credential entity.
type Credential struct {
	ID             string
	Name           string
	Kind           string
	Description    string
	Ciphertext     []byte
	OwnerID        string
	Tags           []string
	CreatedAt      time.Time
	LastAccessedAt *time.Time
	AccessCount    int64
}

// Summary drops the ciphertext.
func (c Credential) Summary() CredentialSummary {
	return CredentialSummary{
		ID:             c.ID,
		Name:           c.Name,
		Kind:           c.Kind,
		Description:    c.Description,
		OwnerID:        c.OwnerID,
		Tags:           c.Tags,
		CreatedAt:      c.CreatedAt,
		LastAccessedAt: c.LastAccessedAt,
		AccessCount:    c.AccessCount,
	}
}

// CredentialSummary is credential metadata without any secret material.
type CredentialSummary struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Kind           string     `json:"kind" yaml:"kind"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty"`
	OwnerID        string     `json:"owner_id" yaml:"owner_id"`
	Tags           []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt      time.Time  `json:"created_at" yaml:"created_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty" yaml:"last_accessed_at,omitempty"`
	AccessCount    int64      `json:"access_count" yaml:"access_count"`
}

// Secret is the decrypted view of a credential returned by a successful retrieve.
type Secret struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Kind           string    `json:"kind" yaml:"kind"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Value          []byte    `json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at" yaml:"last_accessed_at"`
	AccessCount    int64     `json:"access_count" yaml:"access_count"`
}

// StoreParams contains parameters to store a credential.
type StoreParams struct {
	Name        string
	Kind        string
	Value       []byte
	Description string
	OwnerID     string
	Tags        []string
	Access      Access
}

// Access describes who performs a vault operation and from where.
type Access struct {
	ActorID       string
	SourceAddress string
	UserAgent     string
}
