package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradetariff/uktt/internal/export"
	"github.com/tradetariff/uktt/internal/render"
	"github.com/tradetariff/uktt/internal/svcctx"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf [chapter]",
	Short: "Compile a chapter of the tariff into a PDF",
	Long: `Compile a chapter into a landscape A4 PDF: the chapter notes (and the
section notes for the first chapter of a section), the commodity table with
numbered footnotes, and appendices for tariff quotas, prohibitions and
restrictions, and anti-dumping duties.

Duty amounts are converted from EUR with the latest published exchange rate
unless --exchange-rate is given.

Examples:
  uktt pdf 01                       # Writes ./01.pdf in GBP
  uktt pdf 84 -c EUR -f /tmp/84.pdf
  uktt pdf 03 --exchange-rate 0.86`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := svcctx.ConfigFrom(ctx)
		logger := svcctx.LoggerFrom(ctx)

		client, err := clientFrom(ctx)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		chapter := cfg.ChapterID
		if len(args) == 1 {
			chapter = args[0]
		}
		if chapter == "" {
			return errors.New("chapter is required (argument or chapter_id)")
		}
		if len(chapter) == 1 {
			chapter = "0" + chapter
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Making a PDF for Chapter %s\n", chapter)
		start := time.Now()

		res, err := export.Export(ctx, client, export.Options{
			ChapterID:    chapter,
			Currency:     cfg.Currency,
			ExchangeRate: cfg.ExchangeRate,
			Logger:       logger,
		}, cfg.Filepath, render.DefaultOptions())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Finished %s (%d pages, %s %.4f) in %s\n",
			res.Path, res.Pages, res.Currency.Code, res.Rate, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	pdfCmd.Flags().StringP("filepath", "f", "", "output path (default: ./{chapter}.pdf)")
	pdfCmd.Flags().StringP("currency", "c", "", "display currency: "+fmt.Sprint(export.SupportedCurrencies())+" (default: GBP)")
	pdfCmd.Flags().Float64("exchange-rate", 0, "EUR exchange rate; 0 uses the latest published rate")
}
