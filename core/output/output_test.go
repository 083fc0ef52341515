package output

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/pricing"
	"pricing-calculator/core/quota"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		amount   string
		code     string
		expected string
	}{
		{"78", "USD", "$78.00"},
		{"2.5", "EUR", "€2.50"},
		{"0.999", "GBP", "£1.00"},
		{"1200", "JPY", "¥1200.00"},
		{"10", "CAD", "C$10.00"},
		{"10", "AUD", "A$10.00"},
		{"10", "CHF", "CHF10.00"},
		{"10", "", "$10.00"},
		{"-3.2", "usd", "$-3.20"},
	}

	for _, tt := range tests {
		t.Run(tt.code+" "+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCurrency(decimal.RequireFromString(tt.amount), tt.code))
		})
	}

	assert.Equal(t, "¥3", FormatCurrencyPlaces(decimal.RequireFromString("2.97"), "JPY", 0))
}

func sampleQuote(failed bool) *pricing.Quote {
	q := &pricing.Quote{
		Vendor:   "Intercom",
		Currency: "USD",
		PlanID:   "essential",
		Places:   2,
		Lines: []pricing.LineItem{{
			EntityID: "essential",
			Label:    "Essential",
			Kind:     catalog.KindPlan,
			Unit:     "seat",
			Units:    3,
			Price:    decimal.RequireFromString("78"),
			Included: &quota.Info{Value: 1, Unit: "seat"},
		}},
		Total:    decimal.RequireFromString("78"),
		Complete: true,
	}
	if failed {
		q.Lines = append(q.Lines, pricing.LineItem{
			EntityID: "fin_resolution",
			Label:    "Fin AI Resolution",
			Kind:     catalog.KindAddon,
			Unit:     "resolution",
			Units:    5,
			Err:      stderrors.New(`unknown identifier "included_quotas.resolution"`),
		})
		q.Complete = false
	}
	return q
}

func TestNewQuoteView(t *testing.T) {
	v := NewQuoteView(sampleQuote(true))

	assert.Equal(t, "78.00", v.Total)
	assert.Equal(t, "$78.00", v.FormattedTotal)
	assert.False(t, v.Complete)
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "78.00", v.Lines[0].Price)
	assert.Equal(t, Unavailable, v.Lines[1].Formatted)
	assert.Empty(t, v.Lines[1].Price)
	assert.Contains(t, v.Lines[1].Error, "included_quotas.resolution")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONFormatter{}.Render(&buf, sampleQuote(false)))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "78.00", decoded["total"])
	assert.Equal(t, true, decoded["complete"])
	assert.Equal(t, "essential", decoded["plan"])
}

func TestCLIFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CLIFormatter{}.Render(&buf, sampleQuote(false)))
	out := buf.String()

	assert.Contains(t, out, "INTERCOM PRICE QUOTE")
	assert.Contains(t, out, "Essential (3 seats)")
	assert.Contains(t, out, "includes 1 seat")
	assert.Contains(t, out, "$78.00")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	width := len([]rune(lines[0]))
	for _, l := range lines {
		assert.Equal(t, width, len([]rune(l)), l)
	}

	buf.Reset()
	require.NoError(t, CLIFormatter{}.Render(&buf, sampleQuote(true)))
	assert.Contains(t, buf.String(), "Fin AI Resolution (5 resolutions)")
	assert.Regexp(t, `TOTAL\s+price unavailable`, buf.String())
}

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MarkdownFormatter{}.Render(&buf, sampleQuote(true)))
	out := buf.String()

	assert.Contains(t, out, "## Intercom quote")
	assert.Contains(t, out, "| Essential | plan | 3 seats | $78.00 |")
	assert.Contains(t, out, "| **Total** | | | **price unavailable** |")
	assert.Contains(t, out, "> `fin_resolution`:")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"cli", "json", "markdown"}, r.Formats())

	assert.Error(t, r.Register(CLIFormatter{}))

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "JSON", sampleQuote(false)))
	assert.Contains(t, buf.String(), "\n  \"currency\": \"USD\"")

	err := r.Render(&buf, "html", sampleQuote(false))
	assert.ErrorContains(t, err, "available: cli, json, markdown")
}
