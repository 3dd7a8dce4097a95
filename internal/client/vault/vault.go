// Package vault implements the credential vault: the only durable store of
// the client. It is a key-value table in a local sqlite database; values are
// sealed with AES-GCM under a key derived from the vault passphrase, so the
// file on disk never holds a usable token.
package vault

import "context"

// Well-known vault keys.
const (
	KeyToken     = "session_token"
	KeyUser      = "session_user"
	KeyExpiresAt = "session_expires_at"
)

// Vault is the persistent encrypted key-value store. Get returns nil for an
// absent key without error. Every failure is wrapped as common.ErrStorage.
type Vault interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetAll writes all pairs in a single transaction; either every key is
	// persisted or none are.
	SetAll(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
