// Package crypto derives the bearer token used to authenticate against the
// M-Pesa open API.
//
// This package provides:
//   - PEM framing of the gateway's raw public key material
//   - RSA PKCS#1 v1.5 encryption of the API key under that public key
//   - Base64 encoding of the resulting ciphertext for the Authorization header
//
// # Token derivation
//
// Derive a bearer token from an API key and the gateway public key:
//
//	token, err := crypto.GenerateToken(apiKey, publicKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// PKCS#1 v1.5 padding is randomized, so two tokens derived from identical
// inputs will differ. Both decrypt to the same API key under the gateway's
// private key, which is all the verifier checks.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const (
	beginPublicKey = "-----BEGIN PUBLIC KEY-----"
	endPublicKey   = "-----END PUBLIC KEY-----"

	// PEM body lines are wrapped at 64 columns.
	pemLineWidth = 64
)

// FormatPublicKey frames raw base64 key material as a PEM public key block.
// Input that already carries the BEGIN PUBLIC KEY delimiter is returned
// unchanged. Only textual framing changes; the key bytes are untouched.
func FormatPublicKey(key string) string {
	if strings.Contains(key, beginPublicKey) {
		return key
	}

	body := strings.Join(strings.Fields(key), "")

	var b strings.Builder
	b.WriteString(beginPublicKey)
	b.WriteString("\n")
	for len(body) > pemLineWidth {
		b.WriteString(body[:pemLineWidth])
		b.WriteString("\n")
		body = body[pemLineWidth:]
	}
	if len(body) > 0 {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString(endPublicKey)
	b.WriteString("\n")
	return b.String()
}

// GenerateToken encrypts apiKey under the gateway public key with RSA
// PKCS#1 v1.5 and returns the ciphertext as standard base64.
func GenerateToken(apiKey, publicKey string) (string, error) {
	if apiKey == "" {
		return "", errors.New("api key must not be empty")
	}

	pub, err := parsePublicKey(FormatPublicKey(publicKey))
	if err != nil {
		return "", err
	}

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt api key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// parsePublicKey decodes a PEM block and parses it as a PKIX RSA public key.
func parsePublicKey(pemKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode public key PEM block")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, expected RSA", parsed)
	}
	return pub, nil
}
