package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"

	"github.com/tradetariff/uktt/internal/tariff"
)

var (
	// ErrUnsupportedCurrency is returned for a currency the export cannot
	// render. The message lists the supported set.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrInvalidExchangeRate is returned when no positive rate is available.
	ErrInvalidExchangeRate = errors.New("invalid exchange rate")
)

// Currency is a display currency for converted duty amounts.
type Currency struct {
	Code   string
	Symbol string
}

// Duty amounts are published in EUR; other currencies are converted with
// the latest monetary exchange rate.
var (
	EUR = Currency{Code: "EUR", Symbol: "€"}
	GBP = Currency{Code: "GBP", Symbol: "£"}
)

var supportedCurrencies = []Currency{EUR, GBP}

// SupportedCurrencies returns the supported currency codes.
func SupportedCurrencies() []string {
	codes := make([]string, len(supportedCurrencies))
	for i, c := range supportedCurrencies {
		codes[i] = c.Code
	}
	return codes
}

// LookupCurrency validates code as an ISO 4217 currency and returns it if
// it is supported.
func LookupCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return EUR, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, fmt.Errorf("%w %q: supported currencies are %s",
			ErrUnsupportedCurrency, code, strings.Join(SupportedCurrencies(), ", "))
	}
	for _, c := range supportedCurrencies {
		if c.Code == unit.String() {
			return c, nil
		}
	}
	return Currency{}, fmt.Errorf("%w %q: supported currencies are %s",
		ErrUnsupportedCurrency, code, strings.Join(SupportedCurrencies(), ", "))
}

// RateSource publishes monetary exchange rates.
type RateSource interface {
	LatestRate(ctx context.Context, currency string) (*tariff.ExchangeRate, error)
}

// ResolveRate returns the EUR conversion rate for cur. EUR is always 1. A
// positive override is used as given; otherwise the latest published rate
// is fetched. The rate must be strictly positive.
func ResolveRate(ctx context.Context, cur Currency, override float64, src RateSource) (float64, error) {
	if override < 0 || math.IsNaN(override) || math.IsInf(override, 0) {
		return 0, fmt.Errorf("%w %v for %s", ErrInvalidExchangeRate, override, cur.Code)
	}
	if cur.Code == EUR.Code {
		return 1, nil
	}
	if override > 0 {
		return override, nil
	}
	if src == nil {
		return 0, fmt.Errorf("%w: no rate source for %s", ErrInvalidExchangeRate, cur.Code)
	}

	r, err := src.LatestRate(ctx, cur.Code)
	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w for %s: %w", ErrInvalidExchangeRate, cur.Code, err)
	}
	rate := float64(r.ExchangeRate)
	if rate <= 0 || math.IsNaN(rate) {
		return 0, fmt.Errorf("%w %v for %s", ErrInvalidExchangeRate, rate, cur.Code)
	}
	return rate, nil
}
