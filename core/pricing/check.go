// Package pricing - Strict catalog checks
package pricing

import (
	stderrors "errors"
	"fmt"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
	"pricing-calculator/core/quota"
	apperrors "pricing-calculator/internal/errors"
)

func init() {
	apperrors.RegisterClassifier(func(err error) (apperrors.Type, bool) {
		var parseErr *formula.ParseError
		var evalErr *formula.EvalError
		var validationErr *catalog.ValidationError
		switch {
		case stderrors.As(err, &validationErr):
			return apperrors.TypeValidation, true
		case stderrors.As(err, &parseErr):
			return apperrors.TypeParse, true
		case stderrors.As(err, &evalErr):
			return apperrors.TypeEvaluation, true
		}
		return "", false
	})
}

// CheckCatalog goes beyond field presence: every formula must parse, every
// unit_price must be a decimal, and every identifier a formula references
// must be bindable for its entity. Findings are returned as a *catalog.ValidationError.
func (e *Engine) CheckCatalog(c *catalog.Catalog) error {
	if err := catalog.ValidateCatalog(c); err != nil {
		return err
	}

	var issues []catalog.Issue
	for i := range c.Plans {
		issues = append(issues, e.checkEntity(catalog.KindPlan, i, &c.Plans[i])...)
	}
	for i := range c.Addons {
		issues = append(issues, e.checkEntity(catalog.KindAddon, i, &c.Addons[i])...)
	}
	if len(issues) == 0 {
		return nil
	}
	return &catalog.ValidationError{Issues: issues}
}

func (e *Engine) checkEntity(kind catalog.EntityKind, index int, entity *catalog.Entity) []catalog.Issue {
	name := "Plan"
	if kind == catalog.KindAddon {
		name = "Addon"
	}
	issue := func(format string, args ...interface{}) catalog.Issue {
		return catalog.Issue{
			Scope:    string(kind),
			Position: index + 1,
			Message:  fmt.Sprintf("%s %d (%s) ", name, index+1, entity.ID) + fmt.Sprintf(format, args...),
		}
	}

	var issues []catalog.Issue
	if _, err := entity.UnitPriceDecimal(); err != nil {
		issues = append(issues, issue("%v", err))
	}

	ast, err := e.cache.Parse(entity.Formula)
	if err != nil {
		return append(issues, issue("formula: %v", err))
	}

	for _, ref := range UnboundReferences(entity, ast) {
		if left, right, ok := subtractionHint(entity, ref); ok {
			issues = append(issues, issue("formula references unknown identifier %q (for subtraction write %q)",
				ref.String(), left+" - "+right))
			continue
		}
		issues = append(issues, issue("formula references unknown identifier %q", ref.String()))
	}
	return issues
}

// UnboundReferences lists the references in ast that the entity's
// environment cannot satisfy: anything other than the entity unit, unit,
// unit_price, or included_quotas.<declared key>.value.
func UnboundReferences(entity *catalog.Entity, ast formula.Node) []formula.Reference {
	var unbound []formula.Reference
	for _, ref := range formula.References(ast) {
		if !bindable(entity, ref) {
			unbound = append(unbound, ref)
		}
	}
	return unbound
}

func bindable(entity *catalog.Entity, ref formula.Reference) bool {
	switch ref.Name {
	case EnvUnit, EnvUnitPrice:
		return len(ref.Path) == 0
	case quota.EnvKey:
		if len(ref.Path) != 2 || ref.Path[1] != "value" {
			return false
		}
		_, ok := entity.IncludedQuotas.Get(ref.Path[0])
		return ok
	}
	return ref.Name == entity.Unit && len(ref.Path) == 0
}

// subtractionHint splits a hyphenated reference into two bindable operands.
// Hyphens join identifier words, so "seat-included_quotas.seat.value" lexes as
// one name rather than a subtraction.
func subtractionHint(entity *catalog.Entity, ref formula.Reference) (string, string, bool) {
	for i := 0; i < len(ref.Name); i++ {
		if ref.Name[i] != '-' {
			continue
		}
		left := formula.Reference{Name: ref.Name[:i]}
		right := formula.Reference{Name: ref.Name[i+1:], Path: ref.Path}
		if bindable(entity, left) && bindable(entity, right) {
			return left.String(), right.String(), true
		}
	}
	return "", "", false
}
