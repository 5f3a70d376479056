package hash

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor applied to new password hashes.
const Cost = 10

// Hash generates a salted bcrypt digest from a plaintext password. The salt
// and cost are embedded in the digest, so verification needs no side-channel.
func Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Check reports whether the plaintext password matches the digest. It never
// returns an error on mismatch.
func Check(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
