package kdf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/credvault/internal/model"
)

func testSalt() []byte {
	return []byte("0123456789abcdef")
}

func testDeriver(t *testing.T) *Deriver {
	t.Helper()
	d, err := NewDeriver(NewParams(AlgorithmPBKDF2, MinIterations, 0, 0, 0))
	require.NoError(t, err)
	return d
}

func TestDeriver_Deterministic(t *testing.T) {
	d := testDeriver(t)

	k1, err := d.Derive([]byte("correct horse"), testSalt())
	require.NoError(t, err)
	k2, err := d.Derive([]byte("correct horse"), testSalt())
	require.NoError(t, err)

	assert.True(t, k1.Equal(k2))
	assert.Len(t, k1.Bytes(), KeySize)
}

func TestDeriver_DifferentPassphrases(t *testing.T) {
	d := testDeriver(t)

	k1, err := d.Derive([]byte("passphrase-one"), testSalt())
	require.NoError(t, err)
	k2, err := d.Derive([]byte("passphrase-two"), testSalt())
	require.NoError(t, err)

	assert.False(t, k1.Equal(k2))
}

func TestDeriver_DifferentSalts(t *testing.T) {
	d := testDeriver(t)

	k1, err := d.Derive([]byte("same"), testSalt())
	require.NoError(t, err)
	k2, err := d.Derive([]byte("same"), []byte("fedcba9876543210"))
	require.NoError(t, err)

	assert.False(t, k1.Equal(k2))
}

func TestDeriver_Argon2id(t *testing.T) {
	d, err := NewDeriver(NewParams(AlgorithmArgon2id, 0, 1, 8*1024, 1))
	require.NoError(t, err)

	k1, err := d.Derive([]byte("pass"), testSalt())
	require.NoError(t, err)
	k2, err := d.Derive([]byte("pass"), testSalt())
	require.NoError(t, err)
	assert.True(t, k1.Equal(k2))

	pb := testDeriver(t)
	k3, err := pb.Derive([]byte("pass"), testSalt())
	require.NoError(t, err)
	assert.False(t, k1.Equal(k3))
}

func TestDeriver_WipesPassphrase(t *testing.T) {
	d := testDeriver(t)
	pass := []byte("wipe-me")

	_, err := d.Derive(pass, testSalt())
	require.NoError(t, err)

	assert.Equal(t, make([]byte, len(pass)), pass)
}

func TestDeriver_Errors(t *testing.T) {
	d := testDeriver(t)

	tests := []struct {
		name       string
		passphrase []byte
		salt       []byte
	}{
		{name: "empty passphrase", passphrase: nil, salt: testSalt()},
		{name: "short salt", passphrase: []byte("p"), salt: []byte("short")},
		{name: "long salt", passphrase: []byte("p"), salt: bytes.Repeat([]byte{1}, SaltSize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Derive(tt.passphrase, tt.salt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrKeyDerivation))
			assert.Equal(t, model.KindKeyDerivation, model.KindOf(err))
		})
	}
}

func TestNewDeriver_RejectsWeakParams(t *testing.T) {
	_, err := NewDeriver(Params{Algorithm: AlgorithmPBKDF2, Iterations: 10})
	require.Error(t, err)

	_, err = NewDeriver(Params{Algorithm: "md5"})
	require.Error(t, err)

	_, err = NewDeriver(Params{Algorithm: AlgorithmArgon2id})
	require.Error(t, err)
}

func TestNewParams_Defaults(t *testing.T) {
	p := NewParams(AlgorithmPBKDF2, 0, 0, 0, 0)
	assert.Equal(t, DefaultIterations, p.Iterations)

	p = NewParams("", 0, 0, 0, 0)
	assert.Equal(t, AlgorithmPBKDF2, p.Algorithm)

	p = NewParams(AlgorithmArgon2id, 0, 0, 0, 0)
	assert.Equal(t, uint32(defaultArgonTime), p.Time)
	assert.Equal(t, uint32(defaultArgonMemKiB), p.MemKiB)
	assert.Equal(t, uint8(defaultArgonThreads), p.Threads)
}

func TestParams_MarshalRoundTrip(t *testing.T) {
	p := NewParams(AlgorithmArgon2id, 0, 2, 1024, 2)
	data, err := p.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalParams(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = UnmarshalParams([]byte("{"))
	require.Error(t, err)
}

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	require.NoError(t, err)
	s2, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, s1, SaltSize)
	assert.NotEqual(t, s1, s2)
}

func TestMasterKey_Destroy(t *testing.T) {
	k, ok := NewMasterKey(bytes.Repeat([]byte{7}, KeySize))
	require.True(t, ok)

	k.Destroy()
	k.Destroy()

	assert.True(t, k.Destroyed())
	assert.Nil(t, k.Bytes())
	assert.Equal(t, [KeySize]byte{}, k.b)
}

func TestNewMasterKey_WrongLength(t *testing.T) {
	_, ok := NewMasterKey([]byte("short"))
	assert.False(t, ok)
}
