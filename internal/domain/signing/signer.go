// Package signing hashes model artifacts and produces keyed signatures over the digest.
package signing

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultKey matches the development key used by local registries.
const DefaultKey = "local-demo-key"

// Signer signs blobs as hex(sha256(key || content)).
type Signer struct {
	key []byte
}

// New creates a Signer; an empty key falls back to DefaultKey.
func New(key string) *Signer {
	if key == "" {
		key = DefaultKey
	}
	return &Signer{key: []byte(key)}
}

// Sign returns the signature of content.
func (s *Signer) Sign(content []byte) string {
	h := sha256.New()
	h.Write(s.key)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches content.
func (s *Signer) Verify(content []byte, signature string) bool {
	expected := s.Sign(content)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// SignFile signs the hex SHA-256 digest of the file at path.
func (s *Signer) SignFile(path string) (string, error) {
	digest, err := FileDigest(path)
	if err != nil {
		return "", err
	}
	return s.Sign([]byte(digest)), nil
}

// VerifyFile reports whether signature matches the current file contents.
func (s *Signer) VerifyFile(path, signature string) (bool, error) {
	digest, err := FileDigest(path)
	if err != nil {
		return false, err
	}
	return s.Verify([]byte(digest), signature), nil
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint returns the hex SHA-256 of a dataset or any other blob.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
