// Package keys provides credential loading for the M-Pesa client.
//
// This package implements the api.CredentialProvider interface for the two
// common deployment shapes: credentials held in memory (StaticProvider) and
// credentials loaded from the process environment with an optional .env file
// (EnvProvider).
//
// # Environment variables
//
//	MPESA_API_KEY     - account API key
//	MPESA_PUBLIC_KEY  - gateway RSA public key, raw base64 or PEM
//
// # Loading credentials
//
// Load credentials from the environment:
//
//	provider := &keys.EnvProvider{}
//	client, err := api.NewClientFromProvider(ctx, cfg, provider)
//	if err != nil {
//		log.Fatal(err)
//	}
package keys

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mozpayments/mpesa/api"
)

const (
	// EnvAPIKey names the environment variable holding the account secret.
	EnvAPIKey = "MPESA_API_KEY"
	// EnvPublicKey names the environment variable holding the gateway key.
	EnvPublicKey = "MPESA_PUBLIC_KEY"
)

// StaticProvider implements api.CredentialProvider from in-memory values.
type StaticProvider struct {
	APIKey    string
	PublicKey string
}

// GetCredentials returns the configured values.
func (s *StaticProvider) GetCredentials(ctx context.Context) (*api.Credentials, error) {
	if s.APIKey == "" || s.PublicKey == "" {
		return nil, errors.New("static provider requires both APIKey and PublicKey")
	}
	return &api.Credentials{APIKey: s.APIKey, PublicKey: s.PublicKey}, nil
}

// EnvProvider implements api.CredentialProvider by reading MPESA_* variables
// from the process environment. When EnvFile is set, that file is loaded
// first; variables already present in the environment win, matching godotenv
// semantics.
type EnvProvider struct {
	// EnvFile is an optional .env file path. A missing file is an error
	// when set explicitly.
	EnvFile string
}

// GetCredentials loads the API key and public key from the environment.
func (e *EnvProvider) GetCredentials(ctx context.Context) (*api.Credentials, error) {
	if e.EnvFile != "" {
		if err := godotenv.Load(e.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", e.EnvFile, err)
		}
	}

	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s is not set", EnvAPIKey)
	}

	publicKey := os.Getenv(EnvPublicKey)
	if publicKey == "" {
		return nil, fmt.Errorf("%s is not set", EnvPublicKey)
	}

	return &api.Credentials{APIKey: apiKey, PublicKey: publicKey}, nil
}
