package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dtroode/credvault/internal/aead"
	"github.com/dtroode/credvault/internal/kdf"
	"github.com/dtroode/credvault/internal/model"
)

var verifierPlaintext = []byte("credvault installation verifier v1")

// ErrInvalidPassphrase is returned by Unlock when the passphrase does not
// open the installation.
var ErrInvalidPassphrase = errors.New("invalid passphrase")

// Unlock derives the master key for an installation. On a fresh store it
// creates the installation with a random salt and the given params; otherwise
// it uses the stored salt and params and checks the passphrase against the
// stored verifier. The passphrase slice is zeroed before Unlock returns.
func Unlock(ctx context.Context, installations model.InstallationStore, passphrase []byte, params kdf.Params) (*kdf.MasterKey, error) {
	defer clear(passphrase)

	inst, err := installations.Get(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return initialize(ctx, installations, passphrase, params)
	}
	if err != nil {
		return nil, model.NewError(model.KindPersistence, "unlock", "", fmt.Errorf("failed to load installation: %w", err))
	}
	return open(inst, passphrase)
}

func initialize(ctx context.Context, installations model.InstallationStore, passphrase []byte, params kdf.Params) (*kdf.MasterKey, error) {
	deriver, err := kdf.NewDeriver(params)
	if err != nil {
		return nil, err
	}
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, model.NewError(model.KindKeyDerivation, "unlock", "", err)
	}

	key, err := deriver.Derive(slices.Clone(passphrase), salt)
	if err != nil {
		return nil, err
	}
	c, err := aead.New(key)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	verifier, err := c.Encrypt(verifierPlaintext)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	encoded, err := params.Marshal()
	if err != nil {
		key.Destroy()
		return nil, model.NewError(model.KindKeyDerivation, "unlock", "", err)
	}

	stored, err := installations.Init(ctx, model.Installation{
		Salt:      salt,
		KDF:       encoded,
		Verifier:  verifier,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		key.Destroy()
		return nil, model.NewError(model.KindPersistence, "unlock", "", fmt.Errorf("failed to save installation: %w", err))
	}
	if bytes.Equal(stored.Salt, salt) {
		return key, nil
	}

	// another process initialized the store first
	key.Destroy()
	return open(stored, passphrase)
}

func open(inst model.Installation, passphrase []byte) (*kdf.MasterKey, error) {
	params, err := kdf.UnmarshalParams(inst.KDF)
	if err != nil {
		return nil, model.NewError(model.KindKeyDerivation, "unlock", "", fmt.Errorf("stored kdf params: %w", err))
	}
	deriver, err := kdf.NewDeriver(params)
	if err != nil {
		return nil, err
	}

	key, err := deriver.Derive(slices.Clone(passphrase), inst.Salt)
	if err != nil {
		return nil, err
	}
	c, err := aead.New(key)
	if err != nil {
		key.Destroy()
		return nil, err
	}
	plaintext, err := c.Decrypt(inst.Verifier)
	if err != nil || !bytes.Equal(plaintext, verifierPlaintext) {
		key.Destroy()
		return nil, model.NewError(model.KindKeyDerivation, "unlock", "", ErrInvalidPassphrase)
	}
	return key, nil
}
