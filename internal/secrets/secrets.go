// Package secrets stores the YNAB token and Actual server credentials
// encrypted at rest under the settings directory.
package secrets

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNotFound is returned when no secret of the requested kind is stored.
var ErrNotFound = errors.New("no stored secret")

const (
	keyFile         = "secret.key"
	tokenFile       = "token.enc"
	credentialsFile = "credentials.enc"
)

// Credentials unlock an Actual Budget server.
type Credentials struct {
	URL      string `json:"url"`
	Password string `json:"password"`
	DataDir  string `json:"data_dir,omitempty"`
}

// Store reads and writes encrypted secrets in one directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// SaveToken encrypts and stores the YNAB API token.
func (s *Store) SaveToken(token string) error {
	return s.write(tokenFile, []byte(token))
}

// LoadToken decrypts and returns the stored YNAB API token.
func (s *Store) LoadToken() (string, error) {
	data, err := s.read(tokenFile)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveCredentials encrypts and stores Actual server credentials.
func (s *Store) SaveCredentials(creds Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	return s.write(credentialsFile, data)
}

// LoadCredentials decrypts and returns stored Actual server credentials.
func (s *Store) LoadCredentials() (Credentials, error) {
	data, err := s.read(credentialsFile)
	if err != nil {
		return Credentials{}, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials: %w", err)
	}
	return creds, nil
}

func (s *Store) write(name string, plaintext []byte) error {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (s *Store) read(name string) ([]byte, error) {
	sealed, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	key, err := s.loadKey()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("%s: ciphertext too short", name)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s: %w", name, err)
	}
	return plaintext, nil
}

func (s *Store) loadKey() ([]byte, error) {
	key, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("encryption key: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("reading encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key has wrong size %d", len(key))
	}
	return key, nil
}

func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := s.loadKey()
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating secrets dir: %w", err)
	}
	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating encryption key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, keyFile), key, 0o600); err != nil {
		return nil, fmt.Errorf("writing encryption key: %w", err)
	}
	return key, nil
}
