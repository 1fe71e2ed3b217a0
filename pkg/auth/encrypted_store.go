package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultSaltSize   = 32
	vaultKeySize    = 32
	vaultKDFRounds  = 100000
	vaultFileFormat = 1
)

// EncryptedFileStore keeps credentials in a single AES-GCM encrypted
// file. The key is derived with PBKDF2 from a passphrase taken from
// LOFTER_PASSPHRASE or from a generated file next to the store.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// vaultFile is the on-disk representation. Only the salt and the
// sealed payload leave memory; the credential map exists decrypted
// only inside this process.
type vaultFile struct {
	Format   int       `json:"format"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// NewEncryptedFileStore opens or prepares an encrypted store at path.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	passphrase, err := loadPassphrase()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain passphrase: %w", err)
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store saves a credential, replacing any existing value of its kind.
func (e *EncryptedFileStore) Store(cred *Credential) error {
	if cred == nil || cred.Kind == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vault, _, err := e.open()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if vault == nil {
		vault = map[Kind]Credential{}
	}
	vault[cred.Kind] = *cred

	return e.seal(vault)
}

// Retrieve returns the stored credential of the given kind.
func (e *EncryptedFileStore) Retrieve(kind Kind) (*Credential, error) {
	if kind == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	vault, _, err := e.open()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, err
	}

	cred, ok := vault[kind]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

// List returns every stored credential.
func (e *EncryptedFileStore) List() ([]*Credential, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	vault, _, err := e.open()
	if err != nil {
		if os.IsNotExist(err) {
			return []*Credential{}, nil
		}
		return nil, err
	}

	creds := make([]*Credential, 0, len(vault))
	for _, cred := range vault {
		c := cred
		creds = append(creds, &c)
	}
	return creds, nil
}

// Delete removes the credential of the given kind. Deleting the last
// credential removes the store file.
func (e *EncryptedFileStore) Delete(kind Kind) error {
	if kind == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vault, _, err := e.open()
	if err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return err
	}
	if _, ok := vault[kind]; !ok {
		return ErrCredentialsNotFound
	}

	delete(vault, kind)
	if len(vault) == 0 {
		return os.Remove(e.path)
	}
	return e.seal(vault)
}

// Exists reports whether a credential of the given kind is stored.
func (e *EncryptedFileStore) Exists(kind Kind) bool {
	cred, err := e.Retrieve(kind)
	return err == nil && cred != nil
}

// open reads, decrypts and decodes the vault. The salt is returned so
// seal can reuse it.
func (e *EncryptedFileStore) open() (map[Kind]Credential, []byte, error) {
	raw, err := os.ReadFile(e.path)
	if err != nil {
		return nil, nil, err
	}

	var file vaultFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("corrupt credential store: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt credential store salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("corrupt credential store payload: %w", err)
	}

	plaintext, err := gcmOpen(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt credential store: %w", err)
	}

	var vault map[Kind]Credential
	if err := json.Unmarshal(plaintext, &vault); err != nil {
		return nil, nil, fmt.Errorf("corrupt credential payload: %w", err)
	}
	return vault, salt, nil
}

// seal encrypts the vault with a fresh salt and writes it atomically.
func (e *EncryptedFileStore) seal(vault map[Kind]Credential) error {
	salt := make([]byte, vaultSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	plaintext, err := json.Marshal(vault)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	sealed, err := gcmSeal(plaintext, e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	raw, err := json.MarshalIndent(vaultFile{
		Format:   vaultFileFormat,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store file: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return os.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, vaultKDFRounds, vaultKeySize, sha256.New)
}

// loadPassphrase returns the vault passphrase, preferring the
// LOFTER_PASSPHRASE environment variable, then a passphrase file in
// the config directory, generating and saving one on first use.
func loadPassphrase() (string, error) {
	if pass := os.Getenv("LOFTER_PASSPHRASE"); pass != "" {
		return pass, nil
	}

	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	passphraseFile := filepath.Join(configDir, ".passphrase")

	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}

	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(buf)

	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func gcmSeal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func gcmOpen(sealed, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed payload too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
