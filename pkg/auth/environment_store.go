package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// Values come from LOFTER_COOKIE_<KIND>, where dashes in the kind name
// are replaced with underscores (e.g. LOFTER_COOKIE_LOFTER_PHONE_LOGIN_AUTH).
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envVarForKind(kind Kind) string {
	name := strings.ReplaceAll(string(kind), "-", "_")
	return "LOFTER_COOKIE_" + strings.ToUpper(name)
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets a credential from environment variables
func (e *EnvironmentStore) Retrieve(kind Kind) (*Credential, error) {
	if kind == "" {
		return nil, ErrInvalidCredentials
	}

	value := os.Getenv(envVarForKind(kind))
	if value == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		Kind:         kind,
		Value:        value,
		LastModified: time.Now(),
	}, nil
}

// List returns credentials for every kind set in the environment
func (e *EnvironmentStore) List() ([]*Credential, error) {
	var creds []*Credential
	for _, kind := range AllKinds {
		if cred, err := e.Retrieve(kind); err == nil {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(kind Kind) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment credential exists
func (e *EnvironmentStore) Exists(kind Kind) bool {
	return os.Getenv(envVarForKind(kind)) != ""
}
