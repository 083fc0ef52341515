// Package catalog - Catalog validation
// A catalog must pass ValidateCatalog before any of its prices are trusted.
package catalog

import (
	"fmt"
	"strings"
)

// Issue is one validation finding
type Issue struct {
	// Scope is "catalog", "plan" or "addon"
	Scope string `json:"scope"`

	// Position is the 1-based index of the entity in its list (0 for catalog scope)
	Position int `json:"position,omitempty"`

	// Fields are the missing required field names
	Fields []string `json:"fields,omitempty"`

	// Message is the human-readable finding
	Message string `json:"message"`
}

// ValidationError aggregates every issue found in a catalog
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Message
	}
	return "invalid pricing catalog: " + strings.Join(msgs, "; ")
}

// MissingFields returns every missing field name across all issues, first occurrence first
func (e *ValidationError) MissingFields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, issue := range e.Issues {
		for _, f := range issue.Fields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// Rule is a catalog validation rule
type Rule func(*Catalog) []Issue

// DefaultRules returns the rules ValidateCatalog applies
func DefaultRules() []Rule {
	return []Rule{
		requireCatalogFields,
		requirePlans,
		requireEntityFields,
	}
}

// RequiredCatalogFields are the top-level fields every catalog declares
var RequiredCatalogFields = []string{"vendor", "url", "currency", "plans", "addons"}

// RequiredEntityFields are the fields every plan and add-on declares
var RequiredEntityFields = []string{"id", "label", "description", "unit", "unit_price", "pricing_model", "features", "formula"}

// ValidateCatalog checks a catalog against the default rules.
// It returns a *ValidationError listing every problem, or nil.
func ValidateCatalog(c *Catalog) error {
	return Validate(c, DefaultRules())
}

// Validate checks a catalog against the given rules
func Validate(c *Catalog, rules []Rule) error {
	if c == nil {
		return &ValidationError{Issues: []Issue{{
			Scope:   "catalog",
			Fields:  append([]string(nil), RequiredCatalogFields...),
			Message: "missing required fields: " + strings.Join(RequiredCatalogFields, ", "),
		}}}
	}

	var issues []Issue
	for _, rule := range rules {
		issues = append(issues, rule(c)...)
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// requireCatalogFields reports all missing top-level fields in one issue
func requireCatalogFields(c *Catalog) []Issue {
	present := map[string]bool{
		"vendor":   c.Vendor != "",
		"url":      c.URL != "",
		"currency": c.Currency != "",
		"plans":    c.Plans != nil,
		"addons":   c.Addons != nil,
	}

	var missing []string
	for _, f := range RequiredCatalogFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []Issue{{
		Scope:   "catalog",
		Fields:  missing,
		Message: "missing required fields: " + strings.Join(missing, ", "),
	}}
}

// requirePlans ensures a declared plan list is not empty
func requirePlans(c *Catalog) []Issue {
	if c.Plans != nil && len(c.Plans) == 0 {
		return []Issue{{Scope: "catalog", Message: "at least one plan is required"}}
	}
	return nil
}

// requireEntityFields reports missing fields per plan and add-on
func requireEntityFields(c *Catalog) []Issue {
	var issues []Issue
	for i := range c.Plans {
		if issue, ok := entityIssue(KindPlan, i, &c.Plans[i]); ok {
			issues = append(issues, issue)
		}
	}
	for i := range c.Addons {
		if issue, ok := entityIssue(KindAddon, i, &c.Addons[i]); ok {
			issues = append(issues, issue)
		}
	}
	return issues
}

func entityIssue(kind EntityKind, index int, e *Entity) (Issue, bool) {
	missing := missingEntityFields(e)
	if len(missing) == 0 {
		return Issue{}, false
	}

	name := "Plan"
	if kind == KindAddon {
		name = "Addon"
	}
	return Issue{
		Scope:    string(kind),
		Position: index + 1,
		Fields:   missing,
		Message:  fmt.Sprintf("%s %d missing required fields: %s", name, index+1, strings.Join(missing, ", ")),
	}, true
}

func missingEntityFields(e *Entity) []string {
	present := map[string]bool{
		"id":            e.ID != "",
		"label":         e.Label != "",
		"description":   e.Description != "",
		"unit":          e.Unit != "",
		"unit_price":    e.UnitPrice != "",
		"pricing_model": e.PricingModel != "",
		"features":      e.Features != nil,
		"formula":       strings.TrimSpace(e.Formula) != "",
	}

	var missing []string
	for _, f := range RequiredEntityFields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Warnings reports advisory findings that do not make a catalog invalid:
// dangling available_addons entries, duplicate ids and unknown pricing models.
func Warnings(c *Catalog) []string {
	if c == nil {
		return nil
	}

	var warnings []string
	warnings = append(warnings, CheckAddonReferences(c)...)
	warnings = append(warnings, duplicateIDs(KindPlan, c.Plans)...)
	warnings = append(warnings, duplicateIDs(KindAddon, c.Addons)...)

	for _, list := range []struct {
		kind     EntityKind
		entities []Entity
	}{{KindPlan, c.Plans}, {KindAddon, c.Addons}} {
		for _, e := range list.entities {
			if e.PricingModel != "" && !e.PricingModel.Known() {
				warnings = append(warnings, fmt.Sprintf("%s %q has unknown pricing_model %q, treated as per_unit", list.kind, e.ID, e.PricingModel))
			}
		}
	}
	return warnings
}

// CheckAddonReferences lists available_addons entries that name no catalog add-on
func CheckAddonReferences(c *Catalog) []string {
	var warnings []string
	for _, plan := range c.Plans {
		for _, id := range plan.AvailableAddons {
			if _, ok := c.Addon(id); !ok {
				warnings = append(warnings, fmt.Sprintf("plan %q offers unknown addon %q", plan.ID, id))
			}
		}
	}
	return warnings
}

func duplicateIDs(kind EntityKind, entities []Entity) []string {
	var warnings []string
	seen := make(map[string]bool)
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		if seen[e.ID] {
			warnings = append(warnings, fmt.Sprintf("duplicate %s id %q", kind, e.ID))
		}
		seen[e.ID] = true
	}
	return warnings
}
