package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// verifierByteLength is the number of random bytes behind a code verifier.
// Hex-encoding yields a 56-character verifier, inside the 43-128 range
// RFC 7636 Section 4.1 requires.
const verifierByteLength = 28

// GenerateVerifier produces a cryptographically random PKCE code verifier.
func GenerateVerifier() (string, error) {
	b := make([]byte, verifierByteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("secure random source unavailable: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ComputeChallenge derives the S256 code challenge from a verifier per
// RFC 7636 Section 4.2: BASE64URL-no-padding(SHA256(verifier)).
func ComputeChallenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// GeneratePair produces a fresh verifier/challenge pair for one
// authorization attempt.
func GeneratePair() (PKCEPair, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return PKCEPair{}, err
	}
	return PKCEPair{
		Verifier:  verifier,
		Challenge: ComputeChallenge(verifier),
	}, nil
}
