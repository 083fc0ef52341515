// Package pricing - Quotes
// A quote prices a plan and its selected add-ons line by line. One failed
// line never prevents the others from being priced.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/quota"
	apperrors "pricing-calculator/internal/errors"
)

// LineItem is the price of one entity in a quote
type LineItem struct {
	EntityID string             `json:"entity_id"`
	Label    string             `json:"label"`
	Kind     catalog.EntityKind `json:"kind"`
	Unit     string             `json:"unit"`
	Units    int                `json:"units"`
	Price    decimal.Decimal    `json:"price"`

	// Included is the primary included quota, when the entity has one
	Included *quota.Info `json:"included,omitempty"`

	// Err is set when the price is unavailable
	Err error `json:"-"`
}

// Available reports whether the line has a price
func (l LineItem) Available() bool {
	return l.Err == nil
}

// Quote is a priced selection of one plan and its add-ons
type Quote struct {
	Vendor   string          `json:"vendor,omitempty"`
	Currency string          `json:"currency"`
	PlanID   string          `json:"plan_id"`
	Lines    []LineItem      `json:"lines"`
	Total    decimal.Decimal `json:"total"`

	// Places is the rounding precision prices were computed with
	Places int32 `json:"places"`

	// Complete is false when any line failed; Total then excludes the failed lines
	Complete bool `json:"complete"`
}

// Failed returns the lines whose price is unavailable
func (q *Quote) Failed() []LineItem {
	var failed []LineItem
	for _, l := range q.Lines {
		if !l.Available() {
			failed = append(failed, l)
		}
	}
	return failed
}

// Err returns a *QuoteError when any line failed
func (q *Quote) Err() error {
	failed := q.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &QuoteError{Failures: failed}
}

// QuoteError reports every entity whose price is unavailable
type QuoteError struct {
	Failures []LineItem
}

// Error implements the error interface
func (e *QuoteError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s %q: %v", f.Kind, f.EntityID, f.Err)
	}
	return "total price unavailable: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the per-entity errors to errors.Is and errors.As
func (e *QuoteError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Quote prices the plan and every add-on with units above zero.
// Unit counts are keyed by entity id; a missing key means 0.
func (e *Engine) Quote(plan *catalog.Entity, addons []catalog.Entity, planUnits, addonUnits map[string]int) *Quote {
	q := &Quote{Currency: e.currency, Total: decimal.Zero, Places: e.places}

	if plan != nil {
		q.PlanID = plan.ID
		q.Lines = append(q.Lines, e.line(plan, catalog.KindPlan, planUnits[plan.ID]))
	}
	for i := range addons {
		units := addonUnits[addons[i].ID]
		if units <= 0 {
			continue
		}
		q.Lines = append(q.Lines, e.line(&addons[i], catalog.KindAddon, units))
	}

	for _, l := range q.Lines {
		if l.Available() {
			q.Total = q.Total.Add(l.Price)
		}
	}
	q.Complete = len(q.Failed()) == 0
	e.metrics.RecordQuote(q.Complete)
	return q
}

func (e *Engine) line(entity *catalog.Entity, kind catalog.EntityKind, units int) LineItem {
	price, err := e.CalculateEntityPrice(entity, units)
	l := LineItem{
		EntityID: entity.ID,
		Label:    entity.Label,
		Kind:     kind,
		Unit:     entity.Unit,
		Units:    units,
		Price:    price,
		Err:      err,
	}
	if info, ok := quota.IncludedQuotaInfo(entity); ok {
		l.Included = &info
	}
	return l
}

// Selection names a plan and add-on unit counts within a catalog
type Selection struct {
	PlanID     string         `json:"plan"`
	PlanUnits  int            `json:"units"`
	AddonUnits map[string]int `json:"addons,omitempty"`
}

// QuoteCatalog resolves a selection against a catalog and prices it.
// Selecting an unknown plan or an add-on the plan does not offer is an error;
// formula failures are reported per line in the returned quote.
func (e *Engine) QuoteCatalog(c *catalog.Catalog, sel Selection) (*Quote, error) {
	plan, ok := c.Plan(sel.PlanID)
	if !ok {
		return nil, apperrors.NotFound("plan", sel.PlanID)
	}
	if sel.PlanUnits < 0 {
		return nil, apperrors.Inputf("units must be >= 0, got %d", sel.PlanUnits)
	}

	ids := make([]string, 0, len(sel.AddonUnits))
	for id := range sel.AddonUnits {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := c.Addon(id); !ok {
			return nil, apperrors.NotFound("addon", id)
		}
		if sel.AddonUnits[id] < 0 {
			return nil, apperrors.Inputf("addon %q units must be >= 0, got %d", id, sel.AddonUnits[id])
		}
		if sel.AddonUnits[id] > 0 && !plan.OffersAddon(id) {
			return nil, apperrors.Inputf("plan %q does not offer addon %q", plan.ID, id)
		}
	}

	q := e.Quote(plan, AvailableAddons(plan, c.Addons), map[string]int{plan.ID: sel.PlanUnits}, sel.AddonUnits)
	q.Vendor = c.Vendor
	return q, nil
}

// AvailableAddons filters addons down to those the plan offers, in catalog order
func AvailableAddons(plan *catalog.Entity, addons []catalog.Entity) []catalog.Entity {
	return catalog.AvailableAddons(plan, addons)
}
