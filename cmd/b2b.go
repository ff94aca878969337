package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/api"
	"github.com/mozpayments/mpesa/reference"
)

// B2BCommand creates the b2b command
func B2BCommand() *cli.Command {
	return &cli.Command{
		Name:  "b2b",
		Usage: "Transfer between business shortcodes (single stage)",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount to transfer",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "recipient-code",
				Usage:    "Recipient business shortcode",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "primary-code",
				Usage: "Sending business shortcode; defaults to --provider-code",
			},
			&cli.StringFlag{
				Name:  "payment-services",
				Usage: "Gateway payment service; defaults to BusinessToBusinessTransfer",
			},
			&cli.StringFlag{
				Name:  "transaction-reference",
				Usage: "Transaction reference; generated when omitted",
			},
			&cli.StringFlag{
				Name:  "third-party-reference",
				Usage: "Correlation reference; generated when omitted",
			},
		),
		Action: runB2B,
	}
}

func runB2B(ctx context.Context, cmd *cli.Command) error {
	amount, err := decimal.NewFromString(cmd.String("amount"))
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	txRef := cmd.String("transaction-reference")
	if txRef == "" {
		txRef = reference.New("T")
	}

	resp, err := client.B2B(ctx, &api.B2BRequest{
		Amount:               amount,
		PrimaryPartyCode:     cmd.String("primary-code"),
		RecipientPartyCode:   cmd.String("recipient-code"),
		TransactionReference: txRef,
		ThirdPartyReference:  thirdPartyRef(cmd),
		PaymentServices:      cmd.String("payment-services"),
	})
	if err != nil {
		return err
	}
	return printEnvelope(resp)
}
