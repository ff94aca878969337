package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/api"
	"github.com/mozpayments/mpesa/reference"
)

// B2CCommand creates the b2c command
func B2CCommand() *cli.Command {
	return &cli.Command{
		Name:  "b2c",
		Usage: "Pay out to a customer wallet (business-to-customer, single stage)",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount to pay out",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "msisdn",
				Usage:    "Recipient MSISDN",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "payment-services",
				Usage: "Gateway payment service; defaults to BusinessPayBill",
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
		Action: runB2C,
	}
}

func runB2C(ctx context.Context, cmd *cli.Command) error {
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

	resp, err := client.B2C(ctx, &api.B2CRequest{
		Amount:               amount,
		CustomerMSISDN:       cmd.String("msisdn"),
		TransactionReference: txRef,
		ThirdPartyReference:  thirdPartyRef(cmd),
		PaymentServices:      cmd.String("payment-services"),
	})
	if err != nil {
		return err
	}
	return printEnvelope(resp)
}
