package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/pricing"
	"pricing-calculator/internal/config"
	"pricing-calculator/internal/logging"
)

// loadCatalog reads and validates a catalog file, printing integrity warnings to w
func loadCatalog(path string, w io.Writer) (*catalog.Catalog, error) {
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, warning := range catalog.Warnings(c) {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return c, nil
}

// newEngine builds an engine for the catalog's currency from the active config
func newEngine(c *catalog.Catalog, registry prometheus.Registerer) (*pricing.Engine, error) {
	cfg := config.Get()

	currency := c.Currency
	if currency == "" {
		currency = cfg.Pricing.DefaultCurrency
	}

	opts := pricing.Options{
		CacheSize:        cfg.Pricing.FormulaCacheSize,
		StrictMinorUnits: cfg.Pricing.StrictMinorUnits,
		Currency:         currency,
		Logger:           logging.Logger,
	}
	if registry != nil {
		opts.Metrics = pricing.NewMetrics(registry)
	}
	return pricing.NewEngine(opts)
}

// parseAssignment splits "name=value"
func parseAssignment(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", s)
	}
	return name, strings.TrimSpace(value), nil
}

// parseUnits parses repeated "id=units" flags
func parseUnits(pairs []string) (map[string]int, error) {
	units := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		id, value, err := parseAssignment(pair)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid units for %s: %q", id, value)
		}
		units[id] = n
	}
	return units, nil
}
