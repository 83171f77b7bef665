package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradetariff/uktt/internal/api"
	"github.com/tradetariff/uktt/internal/tariff"
)

var latestCurrency string

var exchangeRatesCmd = &cobra.Command{
	Use:     "exchange-rates",
	Aliases: []string{"monetary-exchange-rates"},
	Short:   "Retrieve monetary exchange rates",
	Long: `Retrieve the monetary exchange rates published against EUR.

With --latest, prints only the most recent rate for one currency.

Examples:
  uktt exchange-rates
  uktt exchange-rates --latest GBP -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := clientFrom(ctx)
		if err != nil {
			return err
		}

		if latestCurrency == "" {
			resp, err := client.Retrieve(ctx, tariff.ExchangeRatesPath())
			if err != nil {
				return fmt.Errorf("failed to retrieve exchange rates: %w", err)
			}
			return api.WriteResponse(cmd.OutOrStdout(), api.GetOutputFormat(), resp)
		}

		rate, err := client.LatestRate(ctx, latestCurrency)
		if err != nil {
			return fmt.Errorf("failed to get latest %s rate: %w", latestCurrency, err)
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), rate)
	},
}

func init() {
	exchangeRatesCmd.Flags().StringVar(&latestCurrency, "latest", "", "print only the latest rate for this currency")
}
