// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"fieldtrack/config"
	"fieldtrack/internal/domain/service"
)

// bcryptHasher is a concrete implementation of the SecretHasher interface using bcrypt.
type bcryptHasher struct {
	cost int
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.SecretHasher interface.
func NewBcryptHasher(cfg *config.Config) service.SecretHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.Auth.BcryptCost
	}

	return &bcryptHasher{cost: cost}
}

// Hash generates a salted hash from a plaintext secret using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)

	return string(bytes), err
}

// Check compares a plaintext secret with a bcrypt hash.
func (h *bcryptHasher) Check(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	// err is nil if the secret and hash match.
	return err == nil
}
