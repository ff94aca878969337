package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/api"
	"github.com/mozpayments/mpesa/reference"
)

// C2BCommand creates the c2b command
func C2BCommand() *cli.Command {
	return &cli.Command{
		Name:  "c2b",
		Usage: "Charge a customer wallet (customer-to-business, single stage)",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount to charge, e.g. 100 or 100.50",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "msisdn",
				Usage:    "Customer MSISDN, e.g. 258841234567",
				Required: true,
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
		Action: runC2B,
	}
}

func runC2B(ctx context.Context, cmd *cli.Command) error {
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

	resp, err := client.C2B(ctx, &api.C2BRequest{
		Amount:               amount,
		CustomerMSISDN:       cmd.String("msisdn"),
		TransactionReference: txRef,
		ThirdPartyReference:  thirdPartyRef(cmd),
	})
	if err != nil {
		return err
	}
	return printEnvelope(resp)
}
