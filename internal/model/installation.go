package model

import (
	"context"
	"time"
)

// InstallationStore persists the per-installation key material descriptor.
type InstallationStore interface {
	// Get returns the installation or ErrNotFound on a fresh store.
	Get(ctx context.Context) (Installation, error)
	// Init persists inst unless an installation already exists and returns
	// the installation that is stored afterwards.
	Init(ctx context.Context, inst Installation) (Installation, error)
}

// Installation holds everything needed to re-derive and verify the master key.
type Installation struct {
	Salt      []byte
	KDF       []byte
	Verifier  []byte
	CreatedAt time.Time
}
