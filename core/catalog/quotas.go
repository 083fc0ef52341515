// Package catalog - Included quotas
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Quota is a quantity bundled into an entity's base fee
type Quota struct {
	// Key is the quota name formulas use: included_quotas.<Key>.value
	Key string

	// Value is the included quantity
	Value int

	// Unit names the quantity; empty means the entity's unit
	Unit string
}

// Quotas keeps included quotas in declaration order.
// The first entry is the primary quota.
type Quotas []Quota

// Get returns the quota with the given key
func (q Quotas) Get(key string) (Quota, bool) {
	for _, quota := range q {
		if quota.Key == key {
			return quota, true
		}
	}
	return Quota{}, false
}

// Primary returns the first declared quota
func (q Quotas) Primary() (Quota, bool) {
	if len(q) == 0 {
		return Quota{}, false
	}
	return q[0], true
}

type quotaJSON struct {
	Value json.RawMessage `json:"value"`
	Unit  string          `json:"unit,omitempty"`
}

// UnmarshalJSON decodes an object of quotas preserving key order
func (q *Quotas) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*q = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("included_quotas must be an object")
	}

	result := Quotas{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw quotaJSON
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("included_quotas.%s: %w", key, err)
		}

		value, err := parseQuotaValue(string(raw.Value))
		if err != nil {
			return fmt.Errorf("included_quotas.%s.value: %w", key, err)
		}
		result = append(result, Quota{Key: key, Value: value, Unit: raw.Unit})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*q = result
	return nil
}

// MarshalJSON encodes quotas as an ordered object
func (q Quotas) MarshalJSON() ([]byte, error) {
	if q == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, quota := range q {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(quota.Key)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(struct {
			Value int    `json:"value"`
			Unit  string `json:"unit,omitempty"`
		}{quota.Value, quota.Unit})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a mapping of quotas preserving key order
func (q *Quotas) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*q = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: included_quotas must be a mapping", node.Line)
	}

	result := Quotas{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		body := node.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: included_quotas.%s must be a mapping", body.Line, key)
		}

		quota := Quota{Key: key}
		for j := 0; j+1 < len(body.Content); j += 2 {
			field, val := body.Content[j].Value, body.Content[j+1]
			switch field {
			case "value":
				v, err := parseQuotaValue(val.Value)
				if err != nil {
					return fmt.Errorf("line %d: included_quotas.%s.value: %w", val.Line, key, err)
				}
				quota.Value = v
			case "unit":
				quota.Unit = val.Value
			}
		}
		result = append(result, quota)
	}
	*q = result
	return nil
}

// MarshalYAML encodes quotas as an ordered mapping
func (q Quotas) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, quota := range q {
		body := &yaml.Node{Kind: yaml.MappingNode}
		body.Content = append(body.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "value"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(quota.Value)},
		)
		if quota.Unit != "" {
			body.Content = append(body.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "unit"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: quota.Unit},
			)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: quota.Key}, body)
	}
	return node, nil
}

// parseQuotaValue accepts a number or a numeric string and truncates to an integer.
// Catalogs in the wild store quota values both ways ("1" and 1).
func parseQuotaValue(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal([]byte(s), &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return int(d.IntPart()), nil
}
