// Package cmd implements the CLI subcommands, one per gateway operation.
// The CLI is thin glue: flag parsing, credential loading and envelope
// printing; all behavior lives in the api package.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mozpayments/mpesa/api"
	"github.com/mozpayments/mpesa/keys"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "environment",
			Usage: "Gateway environment (sandbox or live)",
			Value: string(api.EnvironmentSandbox),
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Explicit gateway host:port, overrides --environment",
		},
		&cli.StringFlag{
			Name:     "provider-code",
			Usage:    "Service provider shortcode",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "origin",
			Usage:    "Origin header value registered with the gateway",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a .env file with MPESA_API_KEY and MPESA_PUBLIC_KEY",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
			Value: 30 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Log request dispatch and outcomes",
		},
	}
}

// newClient builds an api.Client from the common flags, loading credentials
// from the environment (optionally seeded by --env-file).
func newClient(ctx context.Context, cmd *cli.Command) (*api.Client, error) {
	var logger *zap.Logger
	if cmd.Bool("verbose") {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = dev
	}

	cfg := api.Config{
		ServiceProviderCode: cmd.String("provider-code"),
		Origin:              cmd.String("origin"),
		Environment:         api.Environment(cmd.String("environment")),
		Host:                cmd.String("host"),
		Timeout:             cmd.Duration("timeout"),
		Logger:              logger,
	}

	provider := &keys.EnvProvider{EnvFile: cmd.String("env-file")}
	client, err := api.NewClientFromProvider(ctx, cfg, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// printEnvelope writes the normalized envelope as indented JSON to stdout.
func printEnvelope(resp *api.Response) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// thirdPartyRef returns the flag value or a fresh UUID when absent.
func thirdPartyRef(cmd *cli.Command) string {
	if ref := cmd.String("third-party-reference"); ref != "" {
		return ref
	}
	return uuid.NewString()
}
