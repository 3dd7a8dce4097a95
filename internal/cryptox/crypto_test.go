package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveVaultKey([]byte("passphrase"), []byte("0123456789abcdef"))
	require.Len(t, key, 32)

	plaintext := []byte(`{"token":"abc"}`)
	ct, nonce, err := Seal(plaintext, key)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ct)
	require.Len(t, nonce, 12)

	got, err := Open(ct, nonce, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	key := DeriveVaultKey([]byte("passphrase"), []byte("0123456789abcdef"))
	other := DeriveVaultKey([]byte("different"), []byte("0123456789abcdef"))

	ct, nonce, err := Seal([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Open(ct, nonce, other)
	require.Error(t, err)
}

func TestDeriveVaultKey_Deterministic(t *testing.T) {
	a := DeriveVaultKey([]byte("p"), []byte("salt-salt-salt-s"))
	b := DeriveVaultKey([]byte("p"), []byte("salt-salt-salt-s"))
	require.Equal(t, a, b)

	c := DeriveVaultKey([]byte("p"), []byte("other-other-othe"))
	require.NotEqual(t, a, c)
}
