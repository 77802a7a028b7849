package service

// SecretHasher defines the interface for hashing and verifying enrollment
// credentials. This abstracts the underlying algorithm (e.g., bcrypt),
// keeping the domain pure.
type SecretHasher interface {
	// Hash generates a salted hash from a plaintext secret.
	Hash(secret string) (string, error)

	// Check compares a plaintext secret with a hash to see if they match.
	Check(secret, hash string) bool
}
