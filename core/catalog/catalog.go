// Package catalog - Pricing catalog model
// A catalog lists the plans and add-ons a vendor sells, each priced by a formula.
// Catalogs are loaded once, validated, and never mutated afterwards.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingModel classifies how an entity is priced
type PricingModel string

const (
	// PerUnit - price scales with the unit count
	PerUnit PricingModel = "per_unit"
	// Flat - a single fixed fee, unit count is 0 or 1
	Flat PricingModel = "flat"
	// Tiered - unit count selects a tier
	Tiered PricingModel = "tiered"
)

// Known reports whether the model is one of the declared pricing models
func (m PricingModel) Known() bool {
	switch m {
	case PerUnit, Flat, Tiered:
		return true
	default:
		return false
	}
}

// EntityKind distinguishes plans from add-ons
type EntityKind string

const (
	KindPlan  EntityKind = "plan"
	KindAddon EntityKind = "addon"
)

// Entity is a plan or add-on priced by a formula over a chosen unit count
type Entity struct {
	// ID uniquely identifies the entity within its list
	ID string `json:"id" yaml:"id"`

	// Label is the display name
	Label string `json:"label" yaml:"label"`

	// Description is a short marketing description
	Description string `json:"description" yaml:"description"`

	// Unit names the priced quantity (e.g. "seat"); formulas may refer to it by this name
	Unit string `json:"unit" yaml:"unit"`

	// UnitPrice is a decimal string such as "39.00"
	UnitPrice string `json:"unit_price" yaml:"unit_price"`

	// PricingModel selects range policy
	PricingModel PricingModel `json:"pricing_model" yaml:"pricing_model"`

	// BillingFrequency is informational (e.g. "monthly")
	BillingFrequency string `json:"billing_frequency,omitempty" yaml:"billing_frequency,omitempty"`

	// IncludedQuotas are quantities bundled before per-unit charges apply, in declaration order
	IncludedQuotas Quotas `json:"included_quotas,omitempty" yaml:"included_quotas,omitempty"`

	// Features is an ordered list of feature descriptions.
	// nil means absent, an empty slice means declared empty.
	Features []string `json:"features" yaml:"features"`

	// AvailableAddons lists add-on ids offered with a plan
	AvailableAddons []string `json:"available_addons,omitempty" yaml:"available_addons,omitempty"`

	// Formula is the price expression
	Formula string `json:"formula" yaml:"formula"`
}

// UnitPriceDecimal parses the unit price
func (e *Entity) UnitPriceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(e.UnitPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid unit_price %q: %w", e.UnitPrice, err)
	}
	return d, nil
}

// OffersAddon reports whether the plan lists the add-on as available
func (e *Entity) OffersAddon(id string) bool {
	for _, a := range e.AvailableAddons {
		if a == id {
			return true
		}
	}
	return false
}

// Catalog is a vendor's complete price list
type Catalog struct {
	Vendor   string `json:"vendor" yaml:"vendor"`
	URL      string `json:"url" yaml:"url"`
	Currency string `json:"currency" yaml:"currency"`

	// Plans are ordered as presented; at least one is required
	Plans []Entity `json:"plans" yaml:"plans"`

	// Addons are ordered as presented; may be empty but must be declared
	Addons []Entity `json:"addons" yaml:"addons"`
}

// Plan returns the plan with the given id
func (c *Catalog) Plan(id string) (*Entity, bool) {
	return find(c.Plans, id)
}

// Addon returns the add-on with the given id
func (c *Catalog) Addon(id string) (*Entity, bool) {
	return find(c.Addons, id)
}

// Entity looks an id up among plans first, then add-ons
func (c *Catalog) Entity(id string) (*Entity, EntityKind, bool) {
	if e, ok := c.Plan(id); ok {
		return e, KindPlan, true
	}
	if e, ok := c.Addon(id); ok {
		return e, KindAddon, true
	}
	return nil, "", false
}

// AvailableAddons returns the catalog add-ons the plan offers, in catalog order
func (c *Catalog) AvailableAddons(plan *Entity) []Entity {
	return AvailableAddons(plan, c.Addons)
}

// AvailableAddons filters addons down to those listed by the plan
func AvailableAddons(plan *Entity, addons []Entity) []Entity {
	if plan == nil {
		return nil
	}
	var result []Entity
	for _, a := range addons {
		if plan.OffersAddon(a.ID) {
			result = append(result, a)
		}
	}
	return result
}

// Fingerprint is a content hash of the catalog. Equal catalogs loaded
// from different formats share a fingerprint.
func (c *Catalog) Fingerprint() string {
	data, _ := json.Marshal(c)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func find(entities []Entity, id string) (*Entity, bool) {
	for i := range entities {
		if entities[i].ID == id {
			return &entities[i], true
		}
	}
	return nil, false
}
