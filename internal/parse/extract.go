// Package parse extracts structured production-log fields from free-form
// chat text. All functions are pure: arbitrary input never fails, it just
// yields an absent result.
package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	lotPattern      = regexp.MustCompile(`[A-Z]\d{5}`)
	quantityPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	categoryPattern = regexp.MustCompile(`(?i)(?:^|\b)(?:kat|kategoria):\s*(.+)`)
)

// ExtractLot returns the first lot code (one uppercase letter + five
// digits) in text.
func ExtractLot(text string) (string, bool) {
	lot := lotPattern.FindString(text)
	return lot, lot != ""
}

// ExtractQuantity returns the first numeric token as an exact decimal.
// A comma decimal separator is normalized to a point; the written precision
// is preserved, so "12,750" stays 12.750. Digits inside the lot code are
// not a quantity.
func ExtractQuantity(text string) (decimal.Decimal, bool) {
	span, ok := quantitySpan(text)
	if !ok {
		return decimal.Decimal{}, false
	}
	raw := strings.ReplaceAll(text[span[0]:span[1]], ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ExtractDescriptor returns text with the lot span and the quantity span
// excised and the remainder whitespace-trimmed. With neither present the
// descriptor is the full trimmed text.
func ExtractDescriptor(text string) string {
	var spans [][]int
	if span := lotPattern.FindStringIndex(text); span != nil {
		spans = append(spans, span)
	}
	if span, ok := quantitySpan(text); ok {
		spans = append(spans, span)
	}
	if len(spans) == 0 {
		return strings.TrimSpace(text)
	}
	if len(spans) == 2 && spans[0][0] > spans[1][0] {
		spans[0], spans[1] = spans[1], spans[0]
	}

	var b strings.Builder
	last := 0
	for _, span := range spans {
		if span[0] > last {
			b.WriteString(text[last:span[0]])
		}
		last = span[1]
	}
	if last < len(text) {
		b.WriteString(text[last:])
	}
	return strings.TrimSpace(b.String())
}

// ExtractCategory returns the value of a "kat:" or "kategoria:" label,
// case-insensitive. The value is the entire remainder of that line, not
// just the next word: "kat: Premium 3.5 kg" yields "Premium 3.5 kg".
// Empty string when the label is absent or bare.
func ExtractCategory(text string) string {
	m := categoryPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(m[1])
	if i := strings.IndexAny(value, "\r\n"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}

// quantitySpan locates the first numeric token that does not overlap the
// lot code. The lot pattern starts with a letter, so its digit run would
// otherwise be a false quantity match.
func quantitySpan(text string) ([]int, bool) {
	lot := lotPattern.FindStringIndex(text)
	for _, span := range quantityPattern.FindAllStringIndex(text, -1) {
		if lot != nil && span[0] < lot[1] && span[1] > lot[0] {
			continue
		}
		return span, true
	}
	return nil, false
}
