// Package pricing provides the entity pricing engine.
// The engine binds an entity's unit count, unit price and included quotas
// into a formula environment, evaluates the entity's formula and rounds the result.
package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
	"pricing-calculator/core/quota"
	apperrors "pricing-calculator/internal/errors"
	"pricing-calculator/internal/logging"
)

// Environment names bound for every entity. An entity unit with one of
// these names rebinds it to the unit count; included_quotas always wins.
const (
	EnvUnit      = "unit"
	EnvUnitPrice = "unit_price"
)

// DefaultPlaces is the rounding precision when minor units are not strict
const DefaultPlaces int32 = 2

// Options configures an Engine
type Options struct {
	// CacheSize bounds the parsed formula cache; 0 disables caching
	CacheSize int

	// StrictMinorUnits rounds to the currency's minor units (JPY has none)
	StrictMinorUnits bool

	// Currency is the ISO code prices are rounded for
	Currency string

	// Logger receives per-entity failures; defaults to the global logger
	Logger *zap.Logger

	// Metrics is optional
	Metrics *Metrics
}

// DefaultOptions returns sensible defaults
func DefaultOptions() Options {
	return Options{
		CacheSize: formula.DefaultCacheSize,
		Currency:  "USD",
	}
}

// Engine prices catalog entities. It is safe for concurrent use.
type Engine struct {
	cache    *formula.Cache
	places   int32
	currency string
	logger   *zap.Logger
	metrics  *Metrics
}

// NewEngine creates a pricing engine
func NewEngine(opts Options) (*Engine, error) {
	cache, err := formula.NewCache(opts.CacheSize)
	if err != nil {
		return nil, apperrors.Config("formula cache", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Logger
	}

	code := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if code == "" {
		code = "USD"
	}

	places := DefaultPlaces
	if opts.StrictMinorUnits {
		places = MinorUnits(code)
	}

	return &Engine{
		cache:    cache,
		places:   places,
		currency: code,
		logger:   logger.Named("pricing"),
		metrics:  opts.Metrics,
	}, nil
}

// MinorUnits returns the number of decimal places a currency is quoted in.
// Unknown codes use DefaultPlaces.
func MinorUnits(code string) int32 {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return DefaultPlaces
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Currency returns the currency prices are rounded for
func (e *Engine) Currency() string {
	return e.currency
}

// Places returns the rounding precision
func (e *Engine) Places() int32 {
	return e.places
}

// CacheStats returns parsed formula cache statistics
func (e *Engine) CacheStats() formula.CacheStats {
	return e.cache.Stats()
}

// Environment builds the formula environment for an entity at a unit count
func Environment(entity *catalog.Entity, units int) (formula.Env, error) {
	unitPrice, err := entity.UnitPriceDecimal()
	if err != nil {
		return nil, &formula.EvalError{
			Kind:       formula.ErrInvalidValue,
			Identifier: EnvUnitPrice,
			Msg:        err.Error(),
		}
	}

	count := formula.NumberFromInt(int64(units))
	env := formula.Env{
		EnvUnit:      count,
		EnvUnitPrice: formula.Number(unitPrice),
	}
	if entity.Unit != "" {
		env[entity.Unit] = count
	}
	env[quota.EnvKey] = quota.Resolve(entity)
	return env, nil
}

// CalculateEntityPrice prices one entity at a unit count.
// Zero units cost nothing and the formula is not evaluated. Failures are
// *internal/errors.Error values wrapping the *formula.ParseError or
// *formula.EvalError that caused them; a failed price is never reported as 0.
func (e *Engine) CalculateEntityPrice(entity *catalog.Entity, units int) (decimal.Decimal, error) {
	if entity == nil {
		return decimal.Zero, apperrors.Input("entity is required")
	}

	start := time.Now()
	price, status, err := e.calculate(entity, units)
	e.metrics.RecordEvaluation(entity.ID, status, time.Since(start))

	if err != nil {
		e.logger.Warn("entity price unavailable",
			zap.String("entity", entity.ID),
			zap.Int("units", units),
			zap.String("formula", entity.Formula),
			zap.Error(err),
		)
		return decimal.Zero, err
	}
	return price, nil
}

func (e *Engine) calculate(entity *catalog.Entity, units int) (decimal.Decimal, string, error) {
	if units < 0 {
		return decimal.Zero, StatusInputError, apperrors.Inputf("units must be >= 0, got %d", units).
			WithContext("entity", entity.ID)
	}
	if units == 0 {
		return decimal.Zero, StatusOK, nil
	}

	ast, hit, err := e.cache.Lookup(entity.Formula)
	e.metrics.RecordCacheLookup(hit)
	if err != nil {
		return decimal.Zero, StatusParseError, apperrors.Wrapf(apperrors.TypeParse, err, "formula of %q", entity.ID).
			WithContext("entity", entity.ID)
	}
	if !hit {
		e.logger.Debug("formula cache miss", zap.String("formula", entity.Formula))
	}

	env, err := Environment(entity, units)
	if err != nil {
		return decimal.Zero, StatusEvaluationError, apperrors.Wrapf(apperrors.TypeEvaluation, err, "price of %q", entity.ID).
			WithContext("entity", entity.ID)
	}

	price, err := formula.EvaluateNumber(ast, env)
	if err != nil {
		return decimal.Zero, StatusEvaluationError, apperrors.Wrapf(apperrors.TypeEvaluation, err, "price of %q", entity.ID).
			WithContext("entity", entity.ID).
			WithContext("units", units)
	}
	return price.Round(e.places), StatusOK, nil
}

// CalculateTotalPrice sums the plan price and the price of every add-on with
// units above zero. Unit counts are keyed by entity id; a missing key means 0.
// Any failed entity makes the total unavailable and the error is a *QuoteError.
func (e *Engine) CalculateTotalPrice(plan *catalog.Entity, addons []catalog.Entity, planUnits, addonUnits map[string]int) (decimal.Decimal, error) {
	q := e.Quote(plan, addons, planUnits, addonUnits)
	if err := q.Err(); err != nil {
		return decimal.Zero, err
	}
	return q.Total, nil
}
