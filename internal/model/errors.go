package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a credential id is absent.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicateID is returned when a credential id already exists.
	ErrDuplicateID = errors.New("credential id already exists")
	// ErrKeyDerivation is returned when the master key cannot be derived or verified.
	ErrKeyDerivation = errors.New("key derivation failed")
	// ErrEncryption is returned when a secret value cannot be sealed.
	ErrEncryption = errors.New("encryption failed")
	// ErrDecryption is returned when a ciphertext is malformed, tampered with or sealed under another key.
	ErrDecryption = errors.New("decryption failed")
	// ErrPersistence is returned when the durable store fails.
	ErrPersistence = errors.New("persistence failure")
)

// ErrorKind classifies vault failures so callers can switch on the outcome.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindKeyDerivation
	KindEncryption
	KindDecryption
	KindNotFound
	KindDuplicateID
	KindPersistence
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "unknown",
	KindKeyDerivation: "key_derivation",
	KindEncryption:    "encryption",
	KindDecryption:    "decryption",
	KindNotFound:      "not_found",
	KindDuplicateID:   "duplicate_id",
	KindPersistence:   "persistence",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindKeyDerivation:
		return ErrKeyDerivation
	case KindEncryption:
		return ErrEncryption
	case KindDecryption:
		return ErrDecryption
	case KindNotFound:
		return ErrNotFound
	case KindDuplicateID:
		return ErrDuplicateID
	case KindPersistence:
		return ErrPersistence
	default:
		return nil
	}
}

// Error is a classified vault error. Op names the vault operation and ID the
// credential it concerned, when there is one.
type Error struct {
	Kind ErrorKind
	Op   string
	ID   string
	Err  error
}

// NewError wraps err with a kind, operation and credential id.
func NewError(kind ErrorKind, op, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: err}
}

func (e *Error) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's kind, so
// errors.Is(err, ErrDecryption) holds even when the cause is a driver error.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first classified error in err's chain. Bare
// sentinels are recognised as well.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Kind
	}
	for _, k := range []ErrorKind{KindNotFound, KindDuplicateID, KindKeyDerivation, KindEncryption, KindDecryption, KindPersistence} {
		if errors.Is(err, k.sentinel()) {
			return k
		}
	}
	return KindUnknown
}
