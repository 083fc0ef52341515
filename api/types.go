// Package api - API types for the pricing service
// These types define the contract for the JSON endpoints.
// The API is stateless: every request is priced against the loaded catalog.
package api

import (
	"encoding/json"

	"pricing-calculator/core/catalog"
	"pricing-calculator/core/formula"
	"pricing-calculator/core/output"
	"pricing-calculator/core/quota"
)

// QuoteRequest is the input to POST /quote
type QuoteRequest struct {
	// Plan is the selected plan id
	Plan string `json:"plan"`

	// Units is the plan unit count
	Units int `json:"units"`

	// Addons maps add-on ids to unit counts
	Addons map[string]int `json:"addons,omitempty"`

	// Clamp forces unit counts into each entity's slider range instead of rejecting them
	Clamp bool `json:"clamp,omitempty"`
}

// QuoteResponse is the output of POST /quote
type QuoteResponse struct {
	RequestID string `json:"request_id"`
	output.QuoteView
}

// EvaluateRequest is the input to POST /evaluate
type EvaluateRequest struct {
	// Formula is the expression text
	Formula string `json:"formula"`

	// Variables bind identifiers; nested objects are reachable by member access
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// EvaluateResponse is the output of POST /evaluate
type EvaluateResponse struct {
	RequestID  string      `json:"request_id"`
	Result     interface{} `json:"result"`
	Kind       string      `json:"kind"`
	Canonical  string      `json:"canonical"`
	References []string    `json:"references"`
}

// RangeResponse is the output of GET /entities/{id}/range
type RangeResponse struct {
	EntityID     string             `json:"entity_id"`
	Kind         catalog.EntityKind `json:"kind"`
	PricingModel string             `json:"pricing_model"`
	Range        quota.Range        `json:"range"`
	Included     *quota.Info        `json:"included,omitempty"`
	UnitPrice    string             `json:"unit_price"`
	Formatted    string             `json:"formatted_unit_price"`
}

// CatalogResponse is the output of GET /catalog
type CatalogResponse struct {
	Fingerprint string           `json:"fingerprint"`
	Warnings    []string         `json:"warnings"`
	Catalog     *catalog.Catalog `json:"catalog"`
}

// ErrorBody is the error envelope every failed request returns
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes an error
type ErrorDetail struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	RequestID string   `json:"request_id,omitempty"`
	Details   []string `json:"details,omitempty"`
}

func formulaResult(v formula.Value) interface{} {
	if n, err := v.AsNumber(); err == nil {
		return json.Number(n.String())
	}
	return v.ToGo()
}
