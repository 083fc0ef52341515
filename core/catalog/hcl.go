// Package catalog - HCL catalog format
//
//	vendor   = "Acme"
//	url      = "https://acme.example/pricing"
//	currency = "USD"
//
//	plan "team" {
//	  label         = "Team"
//	  unit          = "seat"
//	  unit_price    = "12.00"
//	  pricing_model = "per_unit"
//	  included_quota "seat" {
//	    value = 3
//	  }
//	  features = ["SSO"]
//	  formula  = "max(0, seat - included_quotas.seat.value) * unit_price"
//	}
package catalog

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Attributes are optional at the HCL level so that missing fields
// reach ValidateCatalog and are reported together.
type hclCatalog struct {
	Vendor   string      `hcl:"vendor,optional"`
	URL      string      `hcl:"url,optional"`
	Currency string      `hcl:"currency,optional"`
	Plans    []hclEntity `hcl:"plan,block"`
	Addons   []hclEntity `hcl:"addon,block"`
}

type hclEntity struct {
	ID               string     `hcl:"id,label"`
	Label            string     `hcl:"label,optional"`
	Description      string     `hcl:"description,optional"`
	Unit             string     `hcl:"unit,optional"`
	UnitPrice        string     `hcl:"unit_price,optional"`
	PricingModel     string     `hcl:"pricing_model,optional"`
	BillingFrequency string     `hcl:"billing_frequency,optional"`
	Quotas           []hclQuota `hcl:"included_quota,block"`
	Features         []string   `hcl:"features,optional"`
	AvailableAddons  []string   `hcl:"available_addons,optional"`
	Formula          string     `hcl:"formula,optional"`
}

type hclQuota struct {
	Key   string `hcl:"key,label"`
	Value int    `hcl:"value"`
	Unit  string `hcl:"unit,optional"`
}

func decodeHCL(data []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}

	var doc hclCatalog
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filename, diags)
	}

	// block lists are always declared in HCL, possibly empty
	c := &Catalog{
		Vendor:   doc.Vendor,
		URL:      doc.URL,
		Currency: doc.Currency,
		Plans:    make([]Entity, 0, len(doc.Plans)),
		Addons:   make([]Entity, 0, len(doc.Addons)),
	}
	for _, p := range doc.Plans {
		c.Plans = append(c.Plans, p.entity())
	}
	for _, a := range doc.Addons {
		c.Addons = append(c.Addons, a.entity())
	}
	return c, nil
}

func (h hclEntity) entity() Entity {
	e := Entity{
		ID:               h.ID,
		Label:            h.Label,
		Description:      h.Description,
		Unit:             h.Unit,
		UnitPrice:        h.UnitPrice,
		PricingModel:     PricingModel(h.PricingModel),
		BillingFrequency: h.BillingFrequency,
		Features:         h.Features,
		AvailableAddons:  h.AvailableAddons,
		Formula:          h.Formula,
	}
	for _, q := range h.Quotas {
		e.IncludedQuotas = append(e.IncludedQuotas, Quota{Key: q.Key, Value: q.Value, Unit: q.Unit})
	}
	return e
}
