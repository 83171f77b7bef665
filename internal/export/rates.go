package export

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	freeRe         = regexp.MustCompile(`(^|[^\d.])0\.00 %`)
	eurAmountRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*EUR\b`)
	trailingZeroRe = regexp.MustCompile(`(\.\d)0(\s|$|/)`)
	pointZeroRe    = regexp.MustCompile(`(\d)\.0(\s|$|/)`)
)

// RateFormatter cleans duty expressions for display and converts EUR
// amounts into the build currency.
type RateFormatter struct {
	Currency Currency
	Rate     float64
}

// Clean applies every display rule to raw, including "0.00 %" to "Free".
func (f RateFormatter) Clean(raw string) string {
	return f.clean(raw, true)
}

// CleanKeepZero cleans raw without the "Free" rule.
func (f RateFormatter) CleanKeepZero(raw string) string {
	return f.clean(raw, false)
}

func (f RateFormatter) clean(raw string, free bool) string {
	s := strings.TrimSpace(raw)
	if free {
		s = freeRe.ReplaceAllString(s, "${1}Free")
	}
	s = eurAmountRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := eurAmountRe.FindStringSubmatch(m)
		v, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}
		return strconv.FormatFloat(f.convert(v), 'f', 1, 64) + " " + f.symbol()
	})
	s = replaceUntilStable(trailingZeroRe, s, "${1}${2}")
	s = replaceUntilStable(pointZeroRe, s, "${1}${2}")
	return strings.ReplaceAll(s, " / ", "/")
}

func (f RateFormatter) convert(v float64) float64 {
	rate := f.Rate
	if rate <= 0 {
		rate = 1
	}
	return math.Round(v*rate*10) / 10
}

func (f RateFormatter) symbol() string {
	if f.Currency.Symbol == "" {
		return EUR.Symbol
	}
	return f.Currency.Symbol
}

// replaceUntilStable repeats a replacement whose matches can overlap.
func replaceUntilStable(re *regexp.Regexp, s, repl string) string {
	for i := 0; i < 8; i++ {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			break
		}
		s = next
	}
	return s
}
