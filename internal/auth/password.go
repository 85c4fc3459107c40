// Package auth holds the credential primitives: password hashing and policy,
// and access token signing and verification.
package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordMinLength applies when no policy is configured.
const DefaultPasswordMinLength = 6

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

var errPasswordTooLong = errors.New("password must be at most 72 bytes")

// PasswordPolicy is the single rule set passwords are checked against.
type PasswordPolicy struct {
	MinLength int
}

// Check returns a user-facing error when password violates the policy.
func (p PasswordPolicy) Check(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if utf8.RuneCountInString(password) < minLength {
		return fmt.Errorf("password must be at least %d characters", minLength)
	}
	if len(password) > maxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
