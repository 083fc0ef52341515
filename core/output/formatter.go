// Package output provides output formatting interfaces.
// This package produces human and machine-readable quotes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"pricing-calculator/core/pricing"
	"pricing-calculator/core/quota"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"

	// FormatMarkdown is a markdown report
	FormatMarkdown Format = "markdown"
)

// Unavailable is shown in place of a price that could not be computed
const Unavailable = "price unavailable"

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given quote
	Render(w io.Writer, q *pricing.Quote) error
}

// Registry manages formatter registration
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry creates a registry holding the built-in formatters
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	_ = r.Register(CLIFormatter{})
	_ = r.Register(JSONFormatter{Indent: true})
	_ = r.Register(MarkdownFormatter{})
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Format()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns a formatter for a format type
func (r *Registry) Get(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// Formats lists the registered format names, sorted
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for f := range r.formatters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Render looks up a formatter by name and renders the quote with it
func (r *Registry) Render(w io.Writer, format string, q *pricing.Quote) error {
	f, ok := r.Get(Format(strings.ToLower(format)))
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %s)", format, strings.Join(r.Formats(), ", "))
	}
	return f.Render(w, q)
}

// QuoteView is the display form of a quote, with prices as fixed-point strings
type QuoteView struct {
	Vendor         string     `json:"vendor,omitempty"`
	Currency       string     `json:"currency"`
	Plan           string     `json:"plan"`
	Lines          []LineView `json:"lines"`
	Total          string     `json:"total"`
	FormattedTotal string     `json:"formatted_total"`
	Complete       bool       `json:"complete"`
}

// LineView is the display form of a quote line
type LineView struct {
	EntityID  string      `json:"entity_id"`
	Label     string      `json:"label"`
	Kind      string      `json:"kind"`
	Unit      string      `json:"unit"`
	Units     int         `json:"units"`
	Price     string      `json:"price,omitempty"`
	Formatted string      `json:"formatted"`
	Included  *quota.Info `json:"included,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// NewQuoteView converts a quote for display
func NewQuoteView(q *pricing.Quote) QuoteView {
	v := QuoteView{
		Vendor:         q.Vendor,
		Currency:       q.Currency,
		Plan:           q.PlanID,
		Lines:          make([]LineView, 0, len(q.Lines)),
		Total:          q.Total.StringFixed(q.Places),
		FormattedTotal: FormatCurrencyPlaces(q.Total, q.Currency, q.Places),
		Complete:       q.Complete,
	}
	for _, l := range q.Lines {
		lv := LineView{
			EntityID: l.EntityID,
			Label:    l.Label,
			Kind:     string(l.Kind),
			Unit:     l.Unit,
			Units:    l.Units,
			Included: l.Included,
		}
		if l.Available() {
			lv.Price = l.Price.StringFixed(q.Places)
			lv.Formatted = FormatCurrencyPlaces(l.Price, q.Currency, q.Places)
		} else {
			lv.Formatted = Unavailable
			lv.Error = l.Err.Error()
		}
		v.Lines = append(v.Lines, lv)
	}
	return v
}

// JSONFormatter renders a QuoteView as JSON
type JSONFormatter struct {
	Indent bool
}

// Format returns the format type
func (JSONFormatter) Format() Format { return FormatJSON }

// Render produces output for the given quote
func (f JSONFormatter) Render(w io.Writer, q *pricing.Quote) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(NewQuoteView(q))
}

// CLIFormatter renders a boxed terminal summary
type CLIFormatter struct{}

// Format returns the format type
func (CLIFormatter) Format() Format { return FormatCLI }

const boxWidth = 73

// Render produces output for the given quote
func (CLIFormatter) Render(w io.Writer, q *pricing.Quote) error {
	v := NewQuoteView(q)
	rule := strings.Repeat("─", boxWidth)
	title := "PRICE QUOTE"
	if v.Vendor != "" {
		title = strings.ToUpper(v.Vendor) + " " + title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "┌%s┐\n", rule)
	fmt.Fprintf(&b, "│ %-*s │\n", boxWidth-2, center(title, boxWidth-2))
	fmt.Fprintf(&b, "├%s┤\n", rule)

	for _, l := range v.Lines {
		label := fmt.Sprintf("%s (%d %s)", l.Label, l.Units, plural(l.Unit, l.Units))
		fmt.Fprintf(&b, "│ %-50s %20s │\n", truncate(label, 50), l.Formatted)
		if l.Included != nil {
			fmt.Fprintf(&b, "│   └─ %-66s │\n", truncate(fmt.Sprintf("includes %d %s", l.Included.Value, plural(l.Included.Unit, l.Included.Value)), 66))
		}
		if l.Error != "" {
			fmt.Fprintf(&b, "│   └─ %-66s │\n", truncate(l.Error, 66))
		}
	}

	total := v.FormattedTotal
	if !v.Complete {
		total = Unavailable
	}
	fmt.Fprintf(&b, "├%s┤\n", rule)
	fmt.Fprintf(&b, "│ %-50s %20s │\n", "TOTAL", total)
	fmt.Fprintf(&b, "└%s┘\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// MarkdownFormatter renders a markdown table
type MarkdownFormatter struct{}

// Format returns the format type
func (MarkdownFormatter) Format() Format { return FormatMarkdown }

// Render produces output for the given quote
func (MarkdownFormatter) Render(w io.Writer, q *pricing.Quote) error {
	v := NewQuoteView(q)

	var b strings.Builder
	if v.Vendor != "" {
		fmt.Fprintf(&b, "## %s quote\n\n", v.Vendor)
	}
	b.WriteString("| Item | Kind | Units | Price |\n")
	b.WriteString("|------|------|------:|------:|\n")
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "| %s | %s | %d %s | %s |\n", escapeCell(l.Label), l.Kind, l.Units, plural(l.Unit, l.Units), l.Formatted)
	}

	if v.Complete {
		fmt.Fprintf(&b, "| **Total** | | | **%s** |\n", v.FormattedTotal)
	} else {
		fmt.Fprintf(&b, "| **Total** | | | **%s** |\n", Unavailable)
		b.WriteString("\n")
		for _, l := range v.Lines {
			if l.Error != "" {
				fmt.Fprintf(&b, "> `%s`: %s\n", l.EntityID, l.Error)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func plural(unit string, n int) string {
	if n == 1 || unit == "" || strings.HasSuffix(unit, "s") {
		return unit
	}
	return unit + "s"
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
