package export

import (
	"strings"
	"time"

	"github.com/tradetariff/uktt/internal/tariff"
)

const nbsp = "\u00a0"

// commodityCode renders the 8-digit part of an item id as "NNNNNN   NN".
func commodityCode(itemID string) string {
	if len(itemID) < 8 {
		return itemID
	}
	return itemID[:6] + strings.Repeat(nbsp, 3) + itemID[6:8]
}

// commoditySuffix returns the last two digits of a 10-digit item id.
func commoditySuffix(itemID string) string {
	if len(itemID) < 10 {
		return ""
	}
	return itemID[8:10]
}

// groupedCode renders an item id as "0101 21 00 00".
func groupedCode(itemID string) string {
	var parts []string
	for _, r := range [][2]int{{0, 4}, {4, 6}, {6, 8}, {8, len(itemID)}} {
		if r[0] >= len(itemID) {
			break
		}
		end := r[1]
		if end > len(itemID) {
			end = len(itemID)
		}
		if p := itemID[r[0]:end]; p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, nbsp)
}

// headingCode renders a heading item id as "CC HH".
func headingCode(itemID string) string {
	if len(itemID) < 4 {
		return itemID
	}
	return itemID[:2] + " " + itemID[2:4]
}

// chapterNumber strips the leading zero of a 2-digit chapter code.
func chapterNumber(code string) string {
	if n := strings.TrimLeft(code, "0"); n != "" {
		return n
	}
	return code
}

// shortDate formats an API date as "d.m"; unparseable dates are blank.
func shortDate(s string) string {
	t, ok := tariff.ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2.1")
}

// period renders a validity range as "d.m-d.m".
func period(start, end string) string {
	return shortDate(start) + "-" + shortDate(end)
}

// footerDate formats the generation date.
func footerDate(t time.Time) string {
	return t.Format("2 January 2006")
}

var subscripts = []rune("₀₁₂₃₄₅₆₇₈₉")

// description converts nomenclature description markup: "|" is a
// non-breaking space and "@d" a subscript digit.
func description(s string) string {
	if !strings.ContainsAny(s, "|@") {
		return s
	}
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch {
		case rs[i] == '|':
			b.WriteString(nbsp)
		case rs[i] == '@' && i+1 < len(rs) && rs[i+1] >= '0' && rs[i+1] <= '9':
			b.WriteRune(subscripts[rs[i+1]-'0'])
			i++
		default:
			b.WriteRune(rs[i])
		}
	}
	return b.String()
}

// chunk splits codes into rows of first codes, then per codes each.
func chunk(codes []string, first, per int) [][]string {
	if len(codes) == 0 {
		return [][]string{nil}
	}
	if first < 1 {
		first = 1
	}
	if per < 1 {
		per = first
	}
	var out [][]string
	n := first
	for len(codes) > 0 {
		if n > len(codes) {
			n = len(codes)
		}
		out = append(out, codes[:n])
		codes = codes[n:]
		n = per
	}
	return out
}

// uniq returns values without blanks or repeats, in first-seen order.
func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
