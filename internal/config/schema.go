package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/tradetariff/uktt/internal/export"
	"github.com/tradetariff/uktt/internal/tariff"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds uktt configuration.
// Stored at: ./uktt.yaml or $HOME/.uktt/uktt.yaml
type Config struct {
	Host         string  `mapstructure:"host" yaml:"host"`                   // API host; empty selects local or production
	Prod         bool    `mapstructure:"prod" yaml:"prod"`                   // Use the production host when host is empty
	APIVersion   string  `mapstructure:"api_version" yaml:"api_version"`     // "v1" or "v2"
	OutputFormat string  `mapstructure:"output_format" yaml:"output_format"` // "json", "object" or "jsonapi"
	Debug        bool    `mapstructure:"debug" yaml:"debug"`
	Currency     string  `mapstructure:"currency" yaml:"currency"`           // PDF display currency
	ChapterID    string  `mapstructure:"chapter_id" yaml:"chapter_id"`       // Default chapter for pdf
	Filepath     string  `mapstructure:"filepath" yaml:"filepath"`           // PDF output path; empty is ./{chapter}.pdf
	ExchangeRate float64 `mapstructure:"exchange_rate" yaml:"exchange_rate"` // 0 uses the latest published rate
	HTTP         HTTPCfg `mapstructure:"http" yaml:"http"`
}

// HTTPCfg configures the API transport.
type HTTPCfg struct {
	TimeoutSeconds    int  `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int  `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	ValidateSchema    bool `mapstructure:"validate_schema" yaml:"validate_schema"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIVersion:   tariff.DefaultVersion,
		OutputFormat: string(tariff.FormatJSONAPI),
		Currency:     export.GBP.Code,
		HTTP: HTTPCfg{
			TimeoutSeconds:    int(tariff.DefaultTimeout / time.Second),
			MaxRetries:        tariff.DefaultMaxRetries,
			RequestsPerMinute: tariff.DefaultRequestsPerMinute,
			ValidateSchema:    true,
		},
	}
}

// APIHost resolves the host to call: an explicit host wins, then the
// production flag, then the local development server.
func (c *Config) APIHost() string {
	switch {
	case c.Host != "":
		return c.Host
	case c.Prod:
		return tariff.HostProduction
	default:
		return tariff.HostLocal
	}
}

// Validate checks the values the client and the PDF export depend on.
func (c *Config) Validate() error {
	if err := c.ValidateClient(); err != nil {
		return err
	}
	if _, err := export.LookupCurrency(c.Currency); err != nil {
		return err
	}
	if c.ExchangeRate < 0 {
		return fmt.Errorf("%w %v", export.ErrInvalidExchangeRate, c.ExchangeRate)
	}
	return nil
}

// ValidateClient checks only the values the API client depends on.
func (c *Config) ValidateClient() error {
	if c.Host != "" {
		u, err := url.Parse(c.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: host %q must be an http(s) URL", ErrInvalidConfig, c.Host)
		}
	}
	if c.APIVersion == "" {
		return fmt.Errorf("%w: api_version is empty", ErrInvalidConfig)
	}
	if _, err := tariff.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.HTTP.TimeoutSeconds < 0 || c.HTTP.MaxRetries < 0 || c.HTTP.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: http settings must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ClientConfig converts the config into tariff client settings.
func (c *Config) ClientConfig() tariff.Config {
	return tariff.Config{
		Host:              c.APIHost(),
		APIVersion:        c.APIVersion,
		Format:            tariff.Format(c.OutputFormat),
		Timeout:           time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		MaxRetries:        c.HTTP.MaxRetries,
		RequestsPerMinute: c.HTTP.RequestsPerMinute,
		ValidateSchema:    c.HTTP.ValidateSchema,
		Debug:             c.Debug,
	}
}
