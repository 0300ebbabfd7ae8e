package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables
// This is primarily for backward compatibility
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := os.Getenv("DCEXPORT_TOKEN")
	if token == "" {
		token = os.Getenv("DISCORD_TOKEN")
	}
	userAgent := os.Getenv("DCEXPORT_USER_AGENT")

	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	// Environment variables don't store an account name, so we use "default" or the provided one
	if name == "" {
		name = "default"
	}

	return &Account{
		Name:         name,
		Token:        token,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("DCEXPORT_TOKEN") != "" || os.Getenv("DISCORD_TOKEN") != ""
}
