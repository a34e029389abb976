package kdf

import (
	"crypto/subtle"
	"sync"
)

// MasterKey is the in-memory vault key. It is never persisted.
type MasterKey struct {
	mu        sync.RWMutex
	b         [KeySize]byte
	destroyed bool
}

// NewMasterKey copies raw into a MasterKey. raw must be KeySize bytes.
func NewMasterKey(raw []byte) (*MasterKey, bool) {
	if len(raw) != KeySize {
		return nil, false
	}
	k := &MasterKey{}
	copy(k.b[:], raw)
	return k, true
}

// Bytes returns a copy of the key material, or nil once destroyed.
func (k *MasterKey) Bytes() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.destroyed {
		return nil
	}
	out := make([]byte, KeySize)
	copy(out, k.b[:])
	return out
}

// Equal compares two keys in constant time.
func (k *MasterKey) Equal(other *MasterKey) bool {
	a, b := k.Bytes(), other.Bytes()
	defer wipe(a)
	defer wipe(b)
	if a == nil || b == nil {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Destroy zeroes the key. It is safe to call more than once.
func (k *MasterKey) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	wipe(k.b[:])
	k.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (k *MasterKey) Destroyed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.destroyed
}
