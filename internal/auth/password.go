package auth

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultMinPasswordLength applies when no minimum is configured.
const DefaultMinPasswordLength = 6

// bcrypt ignores input past this many bytes.
const maxPasswordBytes = 72

var (
	// ErrWeakPassword is returned for passwords shorter than the minimum.
	ErrWeakPassword = errors.New("password too short")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash whole.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("password mismatch")
)

// PasswordPolicy holds the sign-up password rules and the hashing cost.
type PasswordPolicy struct {
	MinLength int
	Cost      int
}

// NewPasswordPolicy fills in defaults for zero values.
func NewPasswordPolicy(minLength, cost int) PasswordPolicy {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return PasswordPolicy{MinLength: minLength, Cost: cost}
}

// Check validates password length, counted in characters.
func (p PasswordPolicy) Check(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash checks password and hashes it with the policy's cost.
func (p PasswordPolicy) Hash(password string) (string, error) {
	if err := p.Check(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
