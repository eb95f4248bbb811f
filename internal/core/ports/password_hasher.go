package ports

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	// NeedsRehash reports whether hash was produced with outdated parameters.
	NeedsRehash(hash string) bool
}
