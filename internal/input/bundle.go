// Package input loads matching requests from JSON or YAML bundle files.
package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/model"
	"gopkg.in/yaml.v3"
)

// Format identifies a bundle encoding.
type Format string

// Supported bundle formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Bundle is one project's matching request: invoices, the estimate set and run options.
type Bundle struct {
	ProjectID string                      `json:"project_id" yaml:"project_id"`
	Invoices  []model.Invoice             `json:"invoices" yaml:"invoices"`
	Estimates []model.EstimateLineItem    `json:"estimates" yaml:"estimates"`
	Options   model.BulkProcessingOptions `json:"options" yaml:"options"`
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported bundle extension %q", common.ErrInvalidInput, filepath.Ext(path))
	}
}

// LoadFile reads and decodes the bundle at path with the default run options.
func LoadFile(path string) (*Bundle, error) {
	return LoadFileWithDefaults(path, model.DefaultBulkOptions())
}

// LoadFileWithDefaults reads the bundle at path. Options absent from the
// document take their values from defaults.
func LoadFileWithDefaults(path string, defaults model.BulkProcessingOptions) (*Bundle, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeWithDefaults(f, format, defaults)
}

// Decode reads a bundle. Options absent from the document keep their defaults.
func Decode(r io.Reader, format Format) (*Bundle, error) {
	return DecodeWithDefaults(r, format, model.DefaultBulkOptions())
}

// DecodeWithDefaults reads a bundle, prefilling options from defaults.
func DecodeWithDefaults(r io.Reader, format Format, defaults model.BulkProcessingOptions) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	bundle := &Bundle{Options: defaults}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(bundle); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON bundle: %v", common.ErrInvalidInput, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(bundle); err != nil {
			return nil, fmt.Errorf("%w: invalid YAML bundle: %v", common.ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown bundle format %q", common.ErrInvalidInput, format)
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	bundle.Options = bundle.Options.Normalize()
	return bundle, nil
}

// Validate checks the structural requirements of a bundle. Line item level
// validation happens in the engine.
func (b *Bundle) Validate() error {
	if strings.TrimSpace(b.ProjectID) == "" {
		return fmt.Errorf("%w: project_id is required", common.ErrInvalidInput)
	}
	if model.ItemCount(b.Invoices) == 0 {
		return fmt.Errorf("%w: bundle has no invoice line items", common.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(b.Estimates))
	for i, e := range b.Estimates {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: estimate %d has no id", common.ErrInvalidInput, i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate estimate id %s", common.ErrInvalidInput, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
