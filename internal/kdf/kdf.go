// Package kdf turns a master passphrase and an installation salt into the
// vault's 256-bit master key.
package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/dtroode/credvault/internal/model"
)

const (
	// KeySize is the master key length, matching AES-256.
	KeySize = 32
	// SaltSize is the installation salt length.
	SaltSize = 16

	// DefaultIterations is the PBKDF2 round count.
	DefaultIterations = 100_000
	// MinIterations rejects parameter sets too weak to slow down guessing.
	MinIterations = 10_000

	defaultArgonTime    = 3
	defaultArgonMemKiB  = 64 * 1024
	defaultArgonThreads = 4
)

// Algorithm names a key derivation function.
type Algorithm string

const (
	AlgorithmPBKDF2   Algorithm = "pbkdf2"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Params selects the derivation function and its cost.
type Params struct {
	Algorithm  Algorithm `json:"alg"`
	Iterations int       `json:"iter,omitempty"`
	Time       uint32    `json:"time,omitempty"`
	MemKiB     uint32    `json:"mem,omitempty"`
	Threads    uint8     `json:"par,omitempty"`
}

// NewParams fills unset costs with defaults for the given algorithm.
func NewParams(alg Algorithm, iterations int, time, memKiB uint32, threads uint8) Params {
	p := Params{Algorithm: alg}
	switch alg {
	case AlgorithmArgon2id:
		p.Time, p.MemKiB, p.Threads = time, memKiB, threads
		if p.Time == 0 {
			p.Time = defaultArgonTime
		}
		if p.MemKiB == 0 {
			p.MemKiB = defaultArgonMemKiB
		}
		if p.Threads == 0 {
			p.Threads = defaultArgonThreads
		}
	default:
		p.Algorithm = AlgorithmPBKDF2
		p.Iterations = iterations
		if p.Iterations <= 0 {
			p.Iterations = DefaultIterations
		}
	}
	return p
}

// Validate checks that the parameters describe a usable derivation.
func (p Params) Validate() error {
	switch p.Algorithm {
	case AlgorithmPBKDF2:
		if p.Iterations < MinIterations {
			return fmt.Errorf("pbkdf2 iterations %d below minimum %d", p.Iterations, MinIterations)
		}
	case AlgorithmArgon2id:
		if p.Time == 0 || p.MemKiB == 0 || p.Threads == 0 {
			return fmt.Errorf("argon2id time, memory and threads must be positive")
		}
	default:
		return fmt.Errorf("unknown kdf algorithm %q", p.Algorithm)
	}
	return nil
}

// Marshal encodes the parameters for the installation record.
func (p Params) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalParams decodes parameters stored with an installation.
func UnmarshalParams(data []byte) (Params, error) {
	var p Params
	if err := json.Unmarshal(data, &p); err != nil {
		return Params{}, fmt.Errorf("failed to decode kdf params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// NewSalt returns a fresh random installation salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Deriver derives master keys with a fixed parameter set.
type Deriver struct {
	params Params
}

// NewDeriver validates params and returns a Deriver.
func NewDeriver(params Params) (*Deriver, error) {
	if err := params.Validate(); err != nil {
		return nil, model.NewError(model.KindKeyDerivation, "derive", "", err)
	}
	return &Deriver{params: params}, nil
}

// Params returns the derivation parameters.
func (d *Deriver) Params() Params {
	return d.params
}

// Derive produces the master key for passphrase and salt. The passphrase
// slice is zeroed before Derive returns, whatever the outcome.
func (d *Deriver) Derive(passphrase, salt []byte) (*MasterKey, error) {
	defer wipe(passphrase)

	if len(passphrase) == 0 {
		return nil, model.NewError(model.KindKeyDerivation, "derive", "", fmt.Errorf("passphrase is empty"))
	}
	if len(salt) != SaltSize {
		return nil, model.NewError(model.KindKeyDerivation, "derive", "",
			fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt)))
	}

	var raw []byte
	switch d.params.Algorithm {
	case AlgorithmArgon2id:
		raw = argon2.IDKey(passphrase, salt, d.params.Time, d.params.MemKiB, d.params.Threads, KeySize)
	default:
		raw = pbkdf2.Key(passphrase, salt, d.params.Iterations, KeySize, sha256.New)
	}

	key := &MasterKey{}
	copy(key.b[:], raw)
	wipe(raw)
	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
