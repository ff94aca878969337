package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/api"
)

// ReversalCommand creates the reversal command
func ReversalCommand() *cli.Command {
	return &cli.Command{
		Name:  "reversal",
		Usage: "Reverse a settled transaction, fully or partially",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount to reverse",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "transaction-id",
				Usage:    "Gateway transaction ID to reverse",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "third-party-reference",
				Usage: "Correlation reference; generated when omitted",
			},
		),
		Action: runReversal,
	}
}

func runReversal(ctx context.Context, cmd *cli.Command) error {
	amount, err := decimal.NewFromString(cmd.String("amount"))
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := client.Reversal(ctx, &api.ReversalRequest{
		Amount:              amount,
		TransactionID:       cmd.String("transaction-id"),
		ThirdPartyReference: thirdPartyRef(cmd),
	})
	if err != nil {
		return err
	}
	return printEnvelope(resp)
}
