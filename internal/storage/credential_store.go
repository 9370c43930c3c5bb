package storage

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/smartscheduler/smartscheduler/internal/core"
)

// CredentialRecord represents stored credential metadata
type CredentialRecord struct {
	ID        string
	Provider  string
	TokenType string
	Encrypted bool
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CredentialStore persists provider credentials such as the OAuth token.
// With a passphrase, data is sealed with XChaCha20-Poly1305 under an
// Argon2id-derived key before it reaches disk.
type CredentialStore struct {
	db         *DB
	passphrase string
}

// NewCredentialStore creates a new credential store. An empty passphrase
// stores credentials in the clear, protected only by file permissions.
func NewCredentialStore(db *DB, passphrase string) *CredentialStore {
	return &CredentialStore{
		db:         db,
		passphrase: passphrase,
	}
}

// Store saves credentials for a provider, replacing any existing ones.
func (s *CredentialStore) Store(provider, tokenType string, data []byte, expiresAt *time.Time) error {
	payload := data
	encrypted := false
	if s.passphrase != "" {
		sealed, err := seal(s.passphrase, data)
		if err != nil {
			return fmt.Errorf("encrypt credentials: %w", err)
		}
		payload = sealed
		encrypted = true
	}

	now := time.Now().Unix()
	_, err := s.db.conn.Exec(`
		INSERT INTO credentials (
			id, provider, data, encrypted, token_type, expires_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			data = excluded.data,
			encrypted = excluded.encrypted,
			token_type = excluded.token_type,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`,
		uuid.New().String(),
		provider,
		payload,
		encrypted,
		tokenType,
		unixOrNull(expiresAt),
		now,
		now,
	)
	if err != nil {
		return unavailable("store credentials", err)
	}
	return nil
}

// Get retrieves credentials for a provider. It returns nil, nil when none are
// stored.
func (s *CredentialStore) Get(provider string) ([]byte, error) {
	var data []byte
	var encrypted bool
	err := s.db.conn.QueryRow(`
		SELECT data, encrypted FROM credentials WHERE provider = ?
	`, provider).Scan(&data, &encrypted)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("query credentials", err)
	}

	if !encrypted {
		return data, nil
	}
	if s.passphrase == "" {
		return nil, fmt.Errorf("%w: %w: stored %s credentials are encrypted and no passphrase is set", core.ErrStoreUnavailable, core.ErrNotAuthorized, provider)
	}

	plain, err := open(s.passphrase, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: decrypt credentials: %w", core.ErrStoreUnavailable, core.ErrNotAuthorized, err)
	}
	return plain, nil
}

// GetRecord retrieves credential metadata without touching the data.
func (s *CredentialStore) GetRecord(provider string) (*CredentialRecord, error) {
	var record CredentialRecord
	var expiresAt sql.NullInt64
	var created, updated int64

	err := s.db.conn.QueryRow(`
		SELECT id, provider, token_type, encrypted, expires_at, created_at, updated_at
		FROM credentials WHERE provider = ?
	`, provider).Scan(
		&record.ID,
		&record.Provider,
		&record.TokenType,
		&record.Encrypted,
		&expiresAt,
		&created,
		&updated,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("query credentials", err)
	}

	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0)
		record.ExpiresAt = &t
	}
	record.CreatedAt = time.Unix(created, 0)
	record.UpdatedAt = time.Unix(updated, 0)

	return &record, nil
}

// Delete removes credentials for a provider
func (s *CredentialStore) Delete(provider string) error {
	_, err := s.db.conn.Exec(`DELETE FROM credentials WHERE provider = ?`, provider)
	if err != nil {
		return unavailable("delete credentials", err)
	}
	return nil
}

// Exists checks if credentials exist for a provider
func (s *CredentialStore) Exists(provider string) (bool, error) {
	var count int
	err := s.db.conn.QueryRow(`
		SELECT COUNT(*) FROM credentials WHERE provider = ?
	`, provider).Scan(&count)

	if err != nil {
		return false, unavailable("check credentials", err)
	}

	return count > 0, nil
}

func unixOrNull(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}

// Sealed layout: salt | nonce | ciphertext.
const saltSize = 16

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 3, 64*1024, 4, chacha20poly1305.KeySize)
}

func seal(passphrase string, plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(plain)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plain, nil), nil
}

func open(passphrase string, sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, errors.New("invalid encrypted data")
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[saltSize+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong passphrase?): %w", err)
	}
	return plain, nil
}
