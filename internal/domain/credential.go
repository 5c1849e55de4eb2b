package domain

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credential is the single operator login. Only the bcrypt hash of the
// password is kept.
type Credential struct {
	ID           int64
	Username     string
	PasswordHash string
}

// NewCredential hashes password with a random salt.
func NewCredential(username, password string) (*Credential, error) {
	if username == "" {
		return nil, &ValidationError{Field: "user", Err: ErrMissingField}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Err: ErrMissingField}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &Credential{Username: username, PasswordHash: string(hash)}, nil
}

// Matches checks a login attempt. Both comparisons run regardless of
// whether the username matched.
func (c *Credential) Matches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}
