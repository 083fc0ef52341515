package quota

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
)

func entity(model catalog.PricingModel, quotas ...catalog.Quota) *catalog.Entity {
	return &catalog.Entity{
		ID:             "e",
		Unit:           "seat",
		PricingModel:   model,
		IncludedQuotas: quotas,
	}
}

func TestSliderRange(t *testing.T) {
	tests := []struct {
		name     string
		entity   *catalog.Entity
		expected Range
	}{
		{"flat", entity(catalog.Flat), Range{0, 1, 1}},
		{"tiered", entity(catalog.Tiered, catalog.Quota{Key: "seat", Value: 500}), Range{1, 10, 1}},
		{"per unit without quota", entity(catalog.PerUnit), Range{0, 100, 1}},
		{"per unit small quota", entity(catalog.PerUnit, catalog.Quota{Key: "seat", Value: 5}), Range{0, 100, 1}},
		{"per unit at threshold", entity(catalog.PerUnit, catalog.Quota{Key: "seat", Value: 50}), Range{0, 100, 1}},
		{"per unit large quota", entity(catalog.PerUnit, catalog.Quota{Key: "seat", Value: 80}), Range{0, 130, 1}},
		{"unspecified model", entity(""), Range{0, 100, 1}},
		{"unknown model", entity("usage", catalog.Quota{Key: "seat", Value: 70}), Range{0, 120, 1}},
		{"nil entity", nil, Range{0, 100, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SliderRange(tt.entity))
		})
	}
}

func TestIncludedQuotaInfo(t *testing.T) {
	_, ok := IncludedQuotaInfo(entity(catalog.PerUnit))
	assert.False(t, ok)

	info, ok := IncludedQuotaInfo(entity(catalog.PerUnit, catalog.Quota{Key: "seat", Value: 3}))
	require.True(t, ok)
	assert.Equal(t, Info{Value: 3, Unit: "seat"}, info)

	info, ok = IncludedQuotaInfo(entity(catalog.PerUnit,
		catalog.Quota{Key: "storage", Value: 10, Unit: "GB"},
		catalog.Quota{Key: "seat", Value: 2},
	))
	require.True(t, ok)
	assert.Equal(t, Info{Value: 10, Unit: "GB"}, info)
}

func TestIsAtIncludedQuota(t *testing.T) {
	e := entity(catalog.PerUnit, catalog.Quota{Key: "seat", Value: 3})
	assert.True(t, IsAtIncludedQuota(e, 0))
	assert.True(t, IsAtIncludedQuota(e, 3))
	assert.False(t, IsAtIncludedQuota(e, 4))
	assert.False(t, IsAtIncludedQuota(entity(catalog.PerUnit), 0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(entity(catalog.Flat), 7))
	assert.Equal(t, 1, Clamp(entity(catalog.Tiered), 0))
	assert.Equal(t, 42, Clamp(entity(catalog.PerUnit), 42))
	assert.Equal(t, 0, Clamp(entity(catalog.PerUnit), -3))
	assert.True(t, Range{0, 1, 1}.Contains(1))
	assert.False(t, Range{1, 10, 1}.Contains(0))
}

func TestResolveExposesEveryQuota(t *testing.T) {
	e := entity(catalog.PerUnit,
		catalog.Quota{Key: "seat", Value: 1},
		catalog.Quota{Key: "storage", Value: 10, Unit: "GB"},
	)
	env := formula.Env{EnvKey: Resolve(e), "seat": formula.NumberFromInt(4)}

	v, err := formula.Eval("seat - included_quotas.seat.value + included_quotas.storage.value", env)
	require.NoError(t, err)
	n, err := v.AsNumber()
	require.NoError(t, err)
	assert.True(t, n.Equal(decimal.NewFromInt(13)))

	v, err = formula.Eval("included_quotas.storage.unit", env)
	require.NoError(t, err)
	assert.Equal(t, formula.String("GB"), v)

	v, err = formula.Eval("included_quotas.seat.unit", env)
	require.NoError(t, err)
	assert.Equal(t, formula.String("seat"), v)
}

func TestResolveWithoutQuotas(t *testing.T) {
	env := formula.Env{EnvKey: Resolve(entity(catalog.PerUnit))}

	_, err := formula.Eval("included_quotas.seat.value", env)
	var evalErr *formula.EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, formula.ErrUnknownIdentifier, evalErr.Kind)
	assert.Equal(t, "included_quotas.seat", evalErr.Identifier)
}
