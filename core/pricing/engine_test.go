package pricing

import (
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
	apperrors "pricing-calculator/internal/errors"
)

func loadCatalog(t *testing.T, name string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadFile(filepath.Join("..", "catalog", "testdata", name))
	require.NoError(t, err)
	return c
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestCalculateEntityPrice(t *testing.T) {
	intercom := loadCatalog(t, "intercom.json")
	acme := loadCatalog(t, "acme.yaml")
	e := newEngine(t, DefaultOptions())

	entity := func(c *catalog.Catalog, id string) *catalog.Entity {
		en, _, ok := c.Entity(id)
		require.True(t, ok, id)
		return en
	}

	tests := []struct {
		name     string
		entity   *catalog.Entity
		units    int
		expected string
	}{
		{"one seat is included", entity(intercom, "essential"), 1, "0"},
		{"three seats", entity(intercom, "essential"), 3, "78.00"},
		{"flat fee", entity(acme, "starter"), 1, "19.00"},
		{"hyphenated unit under quota", entity(acme, "growth"), 2, "20.00"},
		{"hyphenated unit over quota", entity(acme, "growth"), 5, "45.00"},
		{"tiered at boundary", entity(acme, "scale"), 10, "250"},
		{"tiered above boundary", entity(acme, "scale"), 15, "350"},
		{"addon quota", entity(acme, "phone"), 150, "2.50"},
		{"addon per unit", entity(acme, "extra-storage"), 3, "14.97"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := e.CalculateEntityPrice(tt.entity, tt.units)
			require.NoError(t, err)
			assertDecimal(t, tt.expected, price)
		})
	}
}

// TestZeroUnitsNeverEvaluate proves a zero count costs nothing even when the formula is broken
func TestZeroUnitsNeverEvaluate(t *testing.T) {
	e := newEngine(t, DefaultOptions())

	entities := append(loadCatalog(t, "intercom.json").Addons, catalog.Entity{
		ID: "broken", Unit: "seat", UnitPrice: "abc", Formula: "seat +",
	})
	for i := range entities {
		price, err := e.CalculateEntityPrice(&entities[i], 0)
		require.NoError(t, err)
		assert.True(t, price.IsZero())
	}
}

func TestCalculateEntityPriceErrors(t *testing.T) {
	e := newEngine(t, DefaultOptions())

	t.Run("parse error", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(&catalog.Entity{ID: "x", Unit: "seat", UnitPrice: "1", Formula: "seat * (unit_price"}, 2)

		var parseErr *formula.ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, apperrors.TypeParse, apperrors.Classify(err))
	})

	t.Run("undeclared identifier", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(&catalog.Entity{ID: "x", Unit: "seat", UnitPrice: "1", Formula: "seats * unit_price"}, 2)

		var evalErr *formula.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, formula.ErrUnknownIdentifier, evalErr.Kind)
		assert.Equal(t, "seats", evalErr.Identifier)
		assert.Equal(t, apperrors.TypeEvaluation, apperrors.Classify(err))
	})

	t.Run("bad unit price", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(&catalog.Entity{ID: "x", Unit: "seat", UnitPrice: "free", Formula: "seat * unit_price"}, 2)

		var evalErr *formula.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, EnvUnitPrice, evalErr.Identifier)
	})

	t.Run("non numeric result", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(&catalog.Entity{ID: "x", Unit: "seat", UnitPrice: "1", Formula: "seat > 1"}, 2)

		var evalErr *formula.EvalError
		require.ErrorAs(t, err, &evalErr)
		assert.Equal(t, formula.ErrTypeMismatch, evalErr.Kind)
	})

	t.Run("negative units", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(&catalog.Entity{ID: "x", Unit: "seat", UnitPrice: "1", Formula: "seat"}, -1)
		assert.True(t, apperrors.IsType(err, apperrors.TypeInput))
	})

	t.Run("nil entity", func(t *testing.T) {
		_, err := e.CalculateEntityPrice(nil, 1)
		assert.True(t, apperrors.IsType(err, apperrors.TypeInput))
	})
}

func TestEnvironmentBindingOrder(t *testing.T) {
	env, err := Environment(&catalog.Entity{Unit: "unit_price", UnitPrice: "2.5"}, 4)
	require.NoError(t, err)

	// the entity unit is bound after unit_price
	shadowed, err := env[EnvUnitPrice].AsNumber()
	require.NoError(t, err)
	assertDecimal(t, "4", shadowed)

	units, err := env[EnvUnit].AsNumber()
	require.NoError(t, err)
	assertDecimal(t, "4", units)

	e := newEngine(t, DefaultOptions())
	price, err := e.CalculateEntityPrice(&catalog.Entity{ID: "odd", Unit: "unit_price", UnitPrice: "2.5", Formula: "unit_price * 3"}, 4)
	require.NoError(t, err)
	assertDecimal(t, "12", price)

	// included_quotas is bound last
	env, err = Environment(&catalog.Entity{Unit: "included_quotas", UnitPrice: "1"}, 4)
	require.NoError(t, err)
	assert.Equal(t, formula.KindObject, env["included_quotas"].Kind())
}

func TestStrictMinorUnits(t *testing.T) {
	assert.Equal(t, int32(0), MinorUnits("JPY"))
	assert.Equal(t, int32(2), MinorUnits("usd"))
	assert.Equal(t, int32(2), MinorUnits("not-a-code"))

	entity := &catalog.Entity{ID: "api", Unit: "call", UnitPrice: "0.99", Formula: "call * unit_price"}

	loose := newEngine(t, Options{Currency: "JPY"})
	price, err := loose.CalculateEntityPrice(entity, 3)
	require.NoError(t, err)
	assertDecimal(t, "2.97", price)

	strict := newEngine(t, Options{Currency: "jpy", StrictMinorUnits: true})
	assert.Equal(t, "JPY", strict.Currency())
	price, err = strict.CalculateEntityPrice(entity, 3)
	require.NoError(t, err)
	assertDecimal(t, "3", price)
}

func TestCalculateTotalPrice(t *testing.T) {
	acme := loadCatalog(t, "acme.yaml")
	e := newEngine(t, DefaultOptions())

	growth, _ := acme.Plan("growth")
	total, err := e.CalculateTotalPrice(growth, acme.Addons,
		map[string]int{"growth": 5},
		map[string]int{"extra-storage": 2, "phone": 0},
	)
	require.NoError(t, err)
	assertDecimal(t, "54.98", total)

	total, err = e.CalculateTotalPrice(growth, acme.Addons, nil, nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

// TestOneFailedAddonKeepsOtherLines proves per-entity isolation in quotes
func TestOneFailedAddonKeepsOtherLines(t *testing.T) {
	intercom := loadCatalog(t, "intercom.json")
	e := newEngine(t, DefaultOptions())

	plan, _ := intercom.Plan("essential")
	q := e.Quote(plan, intercom.Addons, map[string]int{"essential": 3}, map[string]int{"fin_resolution": 5})

	require.Len(t, q.Lines, 2)
	assert.True(t, q.Lines[0].Available())
	assertDecimal(t, "78.00", q.Lines[0].Price)
	assert.False(t, q.Lines[1].Available())
	assert.False(t, q.Complete)
	assertDecimal(t, "78.00", q.Total)

	_, err := e.CalculateTotalPrice(plan, intercom.Addons, map[string]int{"essential": 3}, map[string]int{"fin_resolution": 5})
	var quoteErr *QuoteError
	require.ErrorAs(t, err, &quoteErr)
	require.Len(t, quoteErr.Failures, 1)
	assert.Equal(t, "fin_resolution", quoteErr.Failures[0].EntityID)

	var evalErr *formula.EvalError
	require.True(t, stderrors.As(err, &evalErr))
	assert.Equal(t, "included_quotas.resolution", evalErr.Identifier)
	assert.Equal(t, apperrors.TypeEvaluation, apperrors.Classify(err))
}

func TestQuoteCatalog(t *testing.T) {
	acme := loadCatalog(t, "acme.yaml")
	e := newEngine(t, Options{Currency: acme.Currency, CacheSize: 8})

	q, err := e.QuoteCatalog(acme, Selection{PlanID: "growth", PlanUnits: 4, AddonUnits: map[string]int{"phone": 300}})
	require.NoError(t, err)
	assert.Equal(t, "Acme Chat", q.Vendor)
	assert.Equal(t, "EUR", q.Currency)
	require.Len(t, q.Lines, 2)
	assert.Equal(t, catalog.KindAddon, q.Lines[1].Kind)
	require.NotNil(t, q.Lines[0].Included)
	assert.Equal(t, "seat", q.Lines[0].Included.Unit)
	assertDecimal(t, "42.50", q.Total)

	_, err = e.QuoteCatalog(acme, Selection{PlanID: "enterprise"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	_, err = e.QuoteCatalog(acme, Selection{PlanID: "starter", PlanUnits: 1, AddonUnits: map[string]int{"phone": 10}})
	assert.True(t, apperrors.IsType(err, apperrors.TypeInput))

	_, err = e.QuoteCatalog(acme, Selection{PlanID: "starter", PlanUnits: 1, AddonUnits: map[string]int{"fax": 1}})
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	q, err = e.QuoteCatalog(acme, Selection{PlanID: "starter", PlanUnits: 1, AddonUnits: map[string]int{"phone": 0}})
	require.NoError(t, err)
	assert.Len(t, q.Lines, 1)
}

func TestAvailableAddons(t *testing.T) {
	acme := loadCatalog(t, "acme.yaml")
	scale, _ := acme.Plan("scale")

	addons := AvailableAddons(scale, acme.Addons)
	require.Len(t, addons, 1)
	assert.Equal(t, "extra-storage", addons[0].ID)
}

func TestCheckCatalog(t *testing.T) {
	e := newEngine(t, DefaultOptions())

	assert.NoError(t, e.CheckCatalog(loadCatalog(t, "acme.yaml")))

	err := e.CheckCatalog(loadCatalog(t, "intercom.json"))
	var ve *catalog.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Issues, 1)
	assert.Equal(t, `Addon 1 (fin_resolution) formula references unknown identifier "included_quotas.resolution.value"`, ve.Issues[0].Message)

	c := loadCatalog(t, "acme.yaml")
	c.Plans[0].UnitPrice = "nineteen"
	c.Plans[1].Formula = "max(0, seats) * unit_price + unit + included_quotas.team-size.unit"
	c.Addons[0].Formula = "block *"

	require.ErrorAs(t, e.CheckCatalog(c), &ve)
	msgs := make([]string, len(ve.Issues))
	for i, issue := range ve.Issues {
		msgs[i] = issue.Message
	}
	assert.Len(t, msgs, 4)
	assert.Contains(t, msgs[0], `Plan 1 (starter) invalid unit_price "nineteen"`)
	assert.Equal(t, `Plan 2 (growth) formula references unknown identifier "seats"`, msgs[1])
	assert.Equal(t, `Plan 2 (growth) formula references unknown identifier "included_quotas.team-size.unit"`, msgs[2])
	assert.Contains(t, msgs[3], "Addon 1 (extra-storage) formula: parse error")

	assert.Equal(t, apperrors.TypeValidation, apperrors.Classify(e.CheckCatalog(c)))
}

func TestCheckCatalogSubtractionHint(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	c := loadCatalog(t, "acme.yaml")
	c.Plans[1].Formula = "max(0, team-size-included_quotas.team-size.value) * unit_price"
	c.Addons[1].Formula = "minute-unknown * unit_price"

	err := e.CheckCatalog(c)
	var ve *catalog.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Issues, 2)
	assert.Equal(t, `Plan 2 (growth) formula references unknown identifier "team-size-included_quotas.team-size.value" `+
		`(for subtraction write "team-size - included_quotas.team-size.value")`, ve.Issues[0].Message)
	assert.Equal(t, `Addon 2 (phone) formula references unknown identifier "minute-unknown"`, ve.Issues[1].Message)
}

func TestEngineMetricsAndLogging(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	core, logs := observer.New(zap.DebugLevel)

	e := newEngine(t, Options{CacheSize: 4, Logger: zap.New(core), Metrics: metrics})
	intercom := loadCatalog(t, "intercom.json")
	plan, _ := intercom.Plan("essential")

	for i := 0; i < 2; i++ {
		_, err := e.CalculateEntityPrice(plan, 3)
		require.NoError(t, err)
	}
	_, err := e.CalculateEntityPrice(&intercom.Addons[0], 2)
	require.Error(t, err)
	e.Quote(plan, nil, map[string]int{"essential": 2}, nil)

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues("essential", StatusOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EvaluationsTotal.WithLabelValues("fin_resolution", StatusEvaluationError)))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CacheHitsTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CacheMissesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.QuotesTotal.WithLabelValues("complete")))
	assert.Equal(t, formula.CacheStats{Hits: 2, Misses: 2, Entries: 2}, e.CacheStats())

	warnings := logs.FilterMessage("entity price unavailable").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "fin_resolution", warnings[0].ContextMap()["entity"])
	assert.Equal(t, "pricing", warnings[0].LoggerName)
	assert.Equal(t, 2, logs.FilterMessage("formula cache miss").Len())
}

func TestNilMetricsAreIgnored(t *testing.T) {
	var m *Metrics
	m.RecordEvaluation("x", StatusOK, 0)
	m.RecordCacheLookup(true)
	m.RecordQuote(false)
}

func TestConcurrentPricing(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	acme := loadCatalog(t, "acme.yaml")
	growth, _ := acme.Plan("growth")

	var wg sync.WaitGroup
	results := make([]decimal.Decimal, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			price, err := e.CalculateEntityPrice(growth, 5)
			if err == nil {
				results[i] = price
			}
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		assertDecimal(t, "45", p)
	}
}
