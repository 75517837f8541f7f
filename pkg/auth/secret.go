package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost      = 12
	SecretKeyLength = 32 // 256 bits
	MinSecretLen    = 16
	MaxSecretLen    = 72 // bcrypt ignores anything longer
)

// SecretValidationError lists why a shared secret was rejected
type SecretValidationError struct {
	Errors []string
}

func (e *SecretValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "secret validation failed"
	}
	return "invalid secret: " + strings.Join(e.Errors, "; ")
}

var weakSecrets = map[string]bool{
	"password":         true,
	"secret":           true,
	"changeme":         true,
	"hooksecret":       true,
	"hook-secret":      true,
	"0123456789abcdef": true,
	"1234567890123456": true,
}

func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

func CompareSecret(hashedSecret, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), []byte(secret))
}

// GenerateSecret returns a random URL-safe shared secret
func GenerateSecret() (string, error) {
	bytes := make([]byte, SecretKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidateSecret enforces minimum strength for a shared hook secret
func ValidateSecret(secret string) error {
	errors := make([]string, 0)

	if len(secret) < MinSecretLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinSecretLen))
	}
	if len(secret) > MaxSecretLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxSecretLen))
	}
	if strings.TrimSpace(secret) != secret {
		errors = append(errors, "must not start or end with whitespace")
	}
	if weakSecrets[strings.ToLower(secret)] {
		errors = append(errors, "is too common")
	}

	if len(errors) > 0 {
		return &SecretValidationError{Errors: errors}
	}
	return nil
}
