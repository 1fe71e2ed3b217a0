package auth

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "lofterscraper"
	keyringPrefix  = "lofter_"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	err := keyring.Set(keyringService, testKey, "test")
	if err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a credential to the system keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Kind == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	key := keyringPrefix + string(cred.Kind)
	if err := keyring.Set(keyringService, key, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return nil
}

// Retrieve gets a credential from the system keychain
func (k *KeyringStore) Retrieve(kind Kind) (*Credential, error) {
	if kind == "" {
		return nil, ErrInvalidCredentials
	}

	key := keyringPrefix + string(kind)
	data, err := keyring.Get(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}

	return &cred, nil
}

// List returns all stored credentials from the keychain. go-keyring
// cannot enumerate keys, so each known kind is probed individually.
func (k *KeyringStore) List() ([]*Credential, error) {
	var creds []*Credential
	for _, kind := range AllKinds {
		if cred, err := k.Retrieve(kind); err == nil && cred != nil {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// Delete removes a credential from the system keychain
func (k *KeyringStore) Delete(kind Kind) error {
	if kind == "" {
		return ErrInvalidCredentials
	}

	key := keyringPrefix + string(kind)
	err := keyring.Delete(keyringService, key)
	if err != nil {
		if err == keyring.ErrNotFound {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return nil
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(kind Kind) bool {
	if kind == "" {
		return false
	}

	key := keyringPrefix + string(kind)
	_, err := keyring.Get(keyringService, key)
	return err == nil
}
