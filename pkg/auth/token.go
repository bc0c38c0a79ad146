package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// PasswordTokenPrefix identifies password activation tokens
	PasswordTokenPrefix = "pwt_"
	// TokenLength is the number of random bytes in a token (128 bits)
	TokenLength = 16
)

// TokenGenerator generates one-time password tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GeneratePasswordToken creates a token for the activation link and the hash
// to store in its place
// Format: pwt_<base64url(16 random bytes)>
func (tg *TokenGenerator) GeneratePasswordToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = PasswordTokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, tg.HashToken(token), nil
}

// HashToken computes the SHA256 hash of a token for storage and lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a password token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, PasswordTokenPrefix) {
		return fmt.Errorf("token must start with %q", PasswordTokenPrefix)
	}

	encoded := strings.TrimPrefix(token, PasswordTokenPrefix)
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	if len(raw) != TokenLength {
		return fmt.Errorf("token must carry %d random bytes, got %d", TokenLength, len(raw))
	}
	return nil
}
