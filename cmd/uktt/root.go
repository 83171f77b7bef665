package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradetariff/uktt/internal/api"
	"github.com/tradetariff/uktt/internal/config"
	"github.com/tradetariff/uktt/internal/home"
	"github.com/tradetariff/uktt/internal/svcctx"
	"github.com/tradetariff/uktt/internal/tariff"
	"github.com/tradetariff/uktt/internal/version"
)

// skipServices marks commands that run without loading configuration.
const skipServices = "skip-services"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "uktt",
	Short: "Client for the UK Trade Tariff API",
	Long: `uktt retrieves sections, chapters, headings, commodities, quotas and
exchange rates from the UK Trade Tariff API, and compiles a chapter of the
tariff into a paginated PDF.

Configuration is read from ./uktt.yaml or ~/.uktt/uktt.yaml, then UKTT_*
environment variables (HOST, VER and PROD are also honoured), then flags.

Examples:
  uktt chapter 01                  # Retrieve chapter 01 from the local API
  uktt -p commodity 0101210000     # Retrieve a commodity from production
  uktt pdf 01 -c EUR -f ch01.pdf   # Compile chapter 01 in euros`,
	Version:           version.GitRelease,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./uktt.yaml or ~/.uktt/uktt.yaml)")
	pf.StringVar(&homeDir, "home", "", "uktt home directory (default: ~/.uktt)")
	pf.StringP("host", "H", "", "API host (default: "+tariff.HostLocal+")")
	pf.BoolP("prod", "p", false, "use the production API ("+tariff.HostProduction+")")
	pf.StringP("api-version", "a", "", "API version: v1 or v2 (default: "+tariff.DefaultVersion+")")
	pf.BoolP("debug", "d", false, "log requests and responses")
	pf.StringP("format", "j", "", "response format: json, object or jsonapi (default: jsonapi)")
	pf.StringVarP(&outputFormat, "output", "o", "yaml", "output encoding for decoded responses: yaml or json")

	rootCmd.AddCommand(api.Resources().BuildCommands(getFetcher)...)
	rootCmd.AddCommand(exchangeRatesCmd)
	rootCmd.AddCommand(pdfCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupServices loads configuration and attaches the logger and API client
// to the command context.
func setupServices(cmd *cobra.Command, args []string) error {
	api.SetOutputFormat(outputFormat)
	if cmd.Annotations[skipServices] != "" {
		return nil
	}

	h, err := home.New(homeDir)
	if err != nil {
		return err
	}
	mgr, err := config.NewManager(cfgFile, cmd.Flags(), ".", h.Path())
	if err != nil {
		return err
	}
	cfg := mgr.Get()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(svcctx.WithServices(ctx, &svcctx.Services{
		Config:        cfg,
		ConfigManager: mgr,
		Client:        tariff.NewClient(clientCfg),
		Logger:        logger,
	}))
	return nil
}

// getFetcher returns the API client at runtime (after flag parsing).
func getFetcher(ctx context.Context) (api.Fetcher, error) {
	return clientFrom(ctx)
}

func clientFrom(ctx context.Context) (*tariff.Client, error) {
	cfg := svcctx.ConfigFrom(ctx)
	client := svcctx.ClientFrom(ctx)
	if cfg == nil || client == nil {
		return nil, fmt.Errorf("services not initialized")
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return client, nil
}
