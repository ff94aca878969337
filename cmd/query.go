package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/api"
)

// QueryCommand creates the query command
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:  "query",
		Usage: "Query the status of a prior transaction",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "query-reference",
				Usage:    "Transaction ID or conversation ID to look up",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "third-party-reference",
				Usage: "Correlation reference; generated when omitted",
			},
		),
		Action: runQuery,
	}
}

func runQuery(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}

	resp, err := client.Query(ctx, &api.QueryRequest{
		QueryReference:      cmd.String("query-reference"),
		ThirdPartyReference: thirdPartyRef(cmd),
	})
	if err != nil {
		return err
	}
	return printEnvelope(resp)
}
