package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random hex secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Secrets is the set of shared secrets a deployment needs
type Secrets struct {
	JWTAccess     string
	WebhookSigner string
}

// GenerateSecrets generates distinct 256-bit secrets for tokens and webhook signing
func GenerateSecrets() (*Secrets, error) {
	var s Secrets
	for _, target := range []*string{&s.JWTAccess, &s.WebhookSigner} {
		secret, err := GenerateSecret(32)
		if err != nil {
			return nil, err
		}
		*target = secret
	}
	return &s, nil
}
