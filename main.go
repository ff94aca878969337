package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/mozpayments/mpesa/cmd"
)

func main() {
	app := &cli.Command{
		Name:  "mpesa",
		Usage: "M-Pesa Mozambique payments client",
		Commands: []*cli.Command{
			cmd.C2BCommand(),
			cmd.B2CCommand(),
			cmd.B2BCommand(),
			cmd.QueryCommand(),
			cmd.ReversalCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
