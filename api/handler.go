// Package api - HTTP handler for pricing
// This handler wraps the engine - it contains NO pricing logic.
// All logic is delegated to core packages.
package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
	"pricing-calculator/core/output"
	"pricing-calculator/core/pricing"
	"pricing-calculator/core/quota"
	apperrors "pricing-calculator/internal/errors"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Handler serves pricing requests against one validated catalog
type Handler struct {
	catalog  *catalog.Catalog
	engine   *pricing.Engine
	warnings []string
}

// NewHandler creates a handler. The catalog must already be validated.
func NewHandler(c *catalog.Catalog, engine *pricing.Engine) (*Handler, error) {
	if err := catalog.ValidateCatalog(c); err != nil {
		return nil, apperrors.Validation("catalog rejected", err)
	}
	warnings := catalog.Warnings(c)
	if warnings == nil {
		warnings = []string{}
	}
	return &Handler{catalog: c, engine: engine, warnings: warnings}, nil
}

func (h *Handler) quote(req *QuoteRequest) (*pricing.Quote, error) {
	sel := pricing.Selection{PlanID: req.Plan, PlanUnits: req.Units, AddonUnits: req.Addons}

	if req.Clamp {
		if plan, ok := h.catalog.Plan(req.Plan); ok {
			sel.PlanUnits = quota.Clamp(plan, req.Units)
		}
		sel.AddonUnits = make(map[string]int, len(req.Addons))
		for id, units := range req.Addons {
			if addon, ok := h.catalog.Addon(id); ok {
				units = quota.Clamp(addon, units)
			}
			sel.AddonUnits[id] = units
		}
	}

	return h.engine.QuoteCatalog(h.catalog, sel)
}

func (h *Handler) evaluate(req *EvaluateRequest) (*EvaluateResponse, error) {
	if req.Formula == "" {
		return nil, apperrors.Input("formula is required")
	}

	env, err := formula.EnvFromGo(req.Variables)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.TypeInput, "invalid variables", err)
	}

	ast, err := formula.Parse(req.Formula)
	if err != nil {
		return nil, apperrors.Parse("invalid formula", err)
	}

	v, err := formula.Evaluate(ast, env)
	if err != nil {
		return nil, apperrors.Evaluation("evaluation failed", err)
	}

	refs := formula.References(ast)
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.String()
	}

	return &EvaluateResponse{
		Result:     formulaResult(v),
		Kind:       v.Kind().String(),
		Canonical:  ast.String(),
		References: names,
	}, nil
}

func (h *Handler) entityRange(id string) (*RangeResponse, error) {
	entity, kind, ok := h.catalog.Entity(id)
	if !ok {
		return nil, apperrors.NotFound("entity", id)
	}

	resp := &RangeResponse{
		EntityID:     entity.ID,
		Kind:         kind,
		PricingModel: string(entity.PricingModel),
		Range:        quota.SliderRange(entity),
		UnitPrice:    entity.UnitPrice,
	}
	if info, ok := quota.IncludedQuotaInfo(entity); ok {
		resp.Included = &info
	}
	if price, err := entity.UnitPriceDecimal(); err == nil {
		resp.Formatted = output.FormatCurrency(price, h.catalog.Currency)
	}
	return resp, nil
}

func (h *Handler) catalogInfo() *CatalogResponse {
	return &CatalogResponse{
		Fingerprint: h.catalog.Fingerprint(),
		Warnings:    h.warnings,
		Catalog:     h.catalog,
	}
}

// decodeJSON strictly decodes a bounded request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		return apperrors.Wrap(apperrors.TypeInput, "invalid JSON body", err)
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.TypeInput, "invalid JSON body", err)
	}
	return nil
}

// statusFor maps an error to an HTTP status and error code
func statusFor(err error) (int, string) {
	t := apperrors.Classify(err)
	switch t {
	case apperrors.TypeInput:
		return http.StatusBadRequest, string(t)
	case apperrors.TypeParse, apperrors.TypeEvaluation, apperrors.TypeValidation:
		return http.StatusUnprocessableEntity, string(t)
	case apperrors.TypeNotFound:
		return http.StatusNotFound, string(t)
	default:
		return http.StatusInternalServerError, string(apperrors.TypeInternal)
	}
}

// errorDetails lists per-entity failures for aggregate errors
func errorDetails(err error) []string {
	var quoteErr *pricing.QuoteError
	if stderrors.As(err, &quoteErr) {
		details := make([]string, len(quoteErr.Failures))
		for i, f := range quoteErr.Failures {
			details[i] = fmt.Sprintf("%s: %v", f.EntityID, f.Err)
		}
		return details
	}

	var validationErr *catalog.ValidationError
	if stderrors.As(err, &validationErr) {
		details := make([]string, len(validationErr.Issues))
		for i, issue := range validationErr.Issues {
			details[i] = issue.Message
		}
		return details
	}
	return nil
}
