// Package catalog - Catalog loading
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a catalog document format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// ParseFormat normalizes a format name
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "hcl":
		return FormatHCL, nil
	default:
		return "", fmt.Errorf("unsupported catalog format %q", s)
	}
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Decode decodes a catalog document without validating it
func Decode(data []byte, format Format, filename string) (*Catalog, error) {
	switch format {
	case FormatJSON:
		var c Catalog
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filename, err)
		}
		return &c, nil
	case FormatYAML:
		var c Catalog
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filename, err)
		}
		return &c, nil
	case FormatHCL:
		return decodeHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
}

// Parse decodes and validates a catalog document.
// An invalid catalog is never returned; the error is a *ValidationError.
func Parse(data []byte, format Format, filename string) (*Catalog, error) {
	c, err := Decode(data, format, filename)
	if err != nil {
		return nil, err
	}
	if err := ValidateCatalog(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads, decodes and validates a catalog from r
func Load(r io.Reader, format Format) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, format, "catalog."+string(format))
}

// LoadFile reads, decodes and validates a catalog file
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, format, path)
}
