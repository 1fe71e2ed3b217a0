package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Kind identifies one of the credential variants the Lofter API accepts.
type Kind string

const (
	// KindAuthorization is the bearer token issued to the mobile app.
	KindAuthorization Kind = "Authorization"
	// KindPhoneLogin is the token issued after a phone-number login.
	KindPhoneLogin Kind = "LOFTER-PHONE-LOGIN-AUTH"
	// KindLofterSession is the LOFTER_SESS session cookie.
	KindLofterSession Kind = "LOFTER_SESS"
	// KindNetEaseSession is the NTES_SESS session cookie shared across NetEase sites.
	KindNetEaseSession Kind = "NTES_SESS"
)

// AllKinds lists every supported credential kind in a stable order.
var AllKinds = []Kind{KindAuthorization, KindPhoneLogin, KindLofterSession, KindNetEaseSession}

// ParseKind maps a user-supplied name to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown credential kind %q (expected one of %v)", s, AllKinds)
}

// Credential is one stored credential value.
type Credential struct {
	Kind         Kind      `json:"kind"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Carrier is an immutable set of credentials with one selected as active.
// The active kind is always a member of the set and its value is non-empty.
type Carrier struct {
	values map[Kind]string
	active Kind
}

// NewCarrier builds a Carrier from the given values and active kind.
// It fails if the active kind is absent or has an empty value.
func NewCarrier(values map[Kind]string, active Kind) (*Carrier, error) {
	if _, err := ParseKind(string(active)); err != nil {
		return nil, err
	}
	if values[active] == "" {
		return nil, fmt.Errorf("active credential kind %s has no value", active)
	}

	copied := make(map[Kind]string, len(values))
	for k, v := range values {
		if v == "" {
			continue
		}
		if _, err := ParseKind(string(k)); err != nil {
			return nil, err
		}
		copied[k] = v
	}

	return &Carrier{values: copied, active: active}, nil
}

// ActiveKind returns the currently selected credential kind.
func (c *Carrier) ActiveKind() Kind {
	return c.active
}

// ActiveValue returns the value of the active credential.
func (c *Carrier) ActiveValue() string {
	return c.values[c.active]
}

// Value returns the value stored for a kind, or empty if absent.
func (c *Carrier) Value(kind Kind) string {
	return c.values[kind]
}

// Kinds returns the kinds present in the carrier in a stable order.
func (c *Carrier) Kinds() []Kind {
	var kinds []Kind
	for k := range c.values {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// WithActive returns a new Carrier with a different active kind.
// The receiver is not modified.
func (c *Carrier) WithActive(kind Kind) (*Carrier, error) {
	return NewCarrier(c.values, kind)
}

// Apply attaches the carrier's credentials to an outgoing request.
// Every kind, token or session, rides in the Cookie header as
// <kind>=<value>; the API reads them nowhere else. The active
// credential is always present.
func (c *Carrier) Apply(req *http.Request) {
	for _, kind := range c.Kinds() {
		req.AddCookie(&http.Cookie{Name: string(kind), Value: c.values[kind]})
	}
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential value for its kind
	Store(cred *Credential) error

	// Retrieve gets the credential for a specific kind
	Retrieve(kind Kind) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a specific kind
	Delete(kind Kind) error

	// Exists checks if a credential exists for a kind
	Exists(kind Kind) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a new credential manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a credential using the first available store
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	if _, err := ParseKind(string(cred.Kind)); err != nil {
		return err
	}
	if cred.Value == "" {
		return errors.New("credential value is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets a credential from the first store that has it
func (m *Manager) Retrieve(kind Kind) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(kind); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("credential not found for kind: %s", kind)
}

// List returns all stored credentials across all stores, keeping the
// most recently modified value per kind.
func (m *Manager) List() ([]*Credential, error) {
	credMap := make(map[Kind]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := credMap[cred.Kind]; !ok || cred.LastModified.After(existing.LastModified) {
				credMap[cred.Kind] = cred
			}
		}
	}

	var result []*Credential
	for _, kind := range AllKinds {
		if cred, ok := credMap[kind]; ok {
			result = append(result, cred)
		}
	}

	return result, nil
}

// Delete removes a credential from all stores
func (m *Manager) Delete(kind Kind) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(kind); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credential not found for kind: %s", kind)
	}

	return nil
}

// DeleteAll removes all stored credentials
func (m *Manager) DeleteAll() error {
	creds, err := m.List()
	if err != nil {
		return err
	}

	for _, cred := range creds {
		_ = m.Delete(cred.Kind) // Ignore individual errors
	}

	return nil
}

// Carrier builds an immutable Carrier from the stored credentials,
// selecting the given kind as active.
func (m *Manager) Carrier(active Kind) (*Carrier, error) {
	creds, err := m.List()
	if err != nil {
		return nil, err
	}

	values := make(map[Kind]string, len(creds))
	for _, cred := range creds {
		values[cred.Kind] = cred.Value
	}

	return NewCarrier(values, active)
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "lofterscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "lofterscraper")
	default: // Linux and others
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "lofterscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "lofterscraper")
		}
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeCredential creates a copy of the credential with the value masked
func SanitizeCredential(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}

	return &Credential{
		Kind:         cred.Kind,
		Value:        maskString(cred.Value),
		LastModified: cred.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
