package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/veilchat/veilchat/internal/client/vault/migrations"
	"github.com/veilchat/veilchat/internal/common"
	"github.com/veilchat/veilchat/internal/cryptox"
	"github.com/veilchat/veilchat/internal/dbx"
)

const saltMetaName = "vault_salt"

// SQLiteVault stores sealed values in a local sqlite database. The sealing
// key is derived once at Open from the passphrase and a per-vault salt kept
// in the (unsealed) vault_meta table.
type SQLiteVault struct {
	db  *sql.DB
	key []byte
}

// Open opens (or creates) the vault database at dsn, applies migrations, and
// derives the sealing key from the passphrase.
func Open(ctx context.Context, dsn string, passphrase []byte) (*SQLiteVault, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open vault db: %v", common.ErrStorage, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate vault db: %v", common.ErrStorage, err)
	}

	salt, err := loadOrCreateSalt(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteVault{db: db, key: cryptox.DeriveVaultKey(passphrase, salt)}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func loadOrCreateSalt(ctx context.Context, db *sql.DB) ([]byte, error) {
	var salt []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM vault_meta WHERE name = ?`, saltMetaName).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: read vault salt: %v", common.ErrStorage, err)
	}

	salt = common.GenerateRandByteArray(32)
	if _, err := db.ExecContext(ctx, `INSERT INTO vault_meta (name, value) VALUES (?, ?)`, saltMetaName, salt); err != nil {
		return nil, fmt.Errorf("%w: store vault salt: %v", common.ErrStorage, err)
	}
	return salt, nil
}

// NewWithKey wires a vault onto an existing database handle with a
// pre-derived sealing key. Used by tests and by embedders that manage the
// database themselves.
func NewWithKey(db *sql.DB, key []byte) *SQLiteVault {
	return &SQLiteVault{db: db, key: key}
}

func (v *SQLiteVault) Close() error {
	common.WipeByteArray(v.key)
	return v.db.Close()
}

func (v *SQLiteVault) Get(ctx context.Context, key string) ([]byte, error) {
	return v.get(ctx, v.db, key)
}

func (v *SQLiteVault) get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var sealed []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM vault_keys WHERE key = ?`, key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get vault[%s]: %v", common.ErrStorage, key, err)
	}

	plain, err := v.unseal(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: unseal vault[%s]: %v", common.ErrStorage, key, err)
	}
	return plain, nil
}

func (v *SQLiteVault) Set(ctx context.Context, key string, value []byte) error {
	return v.set(ctx, v.db, key, value)
}

func (v *SQLiteVault) set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	sealed, err := v.seal(value)
	if err != nil {
		return fmt.Errorf("%w: seal vault[%s]: %v", common.ErrStorage, key, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO vault_keys (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, sealed)
	if err != nil {
		return fmt.Errorf("%w: set vault[%s]: %v", common.ErrStorage, key, err)
	}
	return nil
}

func (v *SQLiteVault) SetAll(ctx context.Context, values map[string][]byte) error {
	return dbx.WithTx(ctx, v.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for key, value := range values {
			if err := v.set(ctx, tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (v *SQLiteVault) Delete(ctx context.Context, key string) error {
	_, err := v.db.ExecContext(ctx, `DELETE FROM vault_keys WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("%w: delete vault[%s]: %v", common.ErrStorage, key, err)
	}
	return nil
}

func (v *SQLiteVault) Clear(ctx context.Context) error {
	_, err := v.db.ExecContext(ctx, `DELETE FROM vault_keys`)
	if err != nil {
		return fmt.Errorf("%w: clear vault: %v", common.ErrStorage, err)
	}
	return nil
}

// seal produces nonce||ciphertext so one blob column holds everything needed
// to decrypt.
func (v *SQLiteVault) seal(plain []byte) ([]byte, error) {
	ct, nonce, err := cryptox.Seal(plain, v.key)
	if err != nil {
		return nil, err
	}
	return append(nonce, ct...), nil
}

func (v *SQLiteVault) unseal(sealed []byte) ([]byte, error) {
	if len(sealed) < 12 {
		return nil, errors.New("sealed value too short")
	}
	return cryptox.Open(sealed[12:], sealed[:12], v.key)
}
