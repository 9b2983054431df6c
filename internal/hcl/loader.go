package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL declaration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "field", LabelNames: []string{"name"}},
	},
}

var fieldSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type"},
		{Name: "constant"},
		{Name: "choices"},
		{Name: "options"},
		{Name: "context"},
		{Name: "multiple"},
		{Name: "sparsity"},
		{Name: "unique"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "field", LabelNames: []string{"name"}},
	},
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (schema.Declaration, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding HCL declaration.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	decl, diags := decodeBody(file.Body)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	logger.Debug("Successfully decoded HCL declaration.", "path", path, "fields", len(decl))
	return schema.Declaration(decl), nil
}

// Parse decodes HCL source held in memory. filename is used in diagnostics.
func Parse(src []byte, filename string) (schema.Declaration, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	decl, diags := decodeBody(file.Body)
	if diags.HasErrors() {
		return nil, diags
	}
	return schema.Declaration(decl), nil
}

func decodeBody(body hcl.Body) (map[string]any, hcl.Diagnostics) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	fields, fieldDiags := decodeFields(content.Blocks)
	return fields, append(diags, fieldDiags...)
}

// decodeFields decodes field blocks into name -> spec.
func decodeFields(blocks hcl.Blocks) (map[string]any, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	out := make(map[string]any, len(blocks))
	for _, block := range blocks {
		name := block.Labels[0]
		if _, dup := out[name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate field",
				Detail:   fmt.Sprintf("A field named %q was already declared at this level.", name),
				Subject:  block.DefRange.Ptr(),
			})
			continue
		}
		spec, specDiags := decodeField(block)
		diags = append(diags, specDiags...)
		if !specDiags.HasErrors() {
			out[name] = spec
		}
	}
	return out, diags
}

func decodeField(block *hcl.Block) (map[string]any, hcl.Diagnostics) {
	content, diags := block.Body.Content(fieldSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	spec := make(map[string]any, len(content.Attributes)+1)
	for name, attr := range content.Attributes {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		v, err := ctyValueToInterface(val)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported value",
				Detail:   fmt.Sprintf("Attribute %q: %s.", name, err),
				Subject:  attr.Range.Ptr(),
			})
			continue
		}
		spec[name] = v
	}

	if len(content.Blocks) > 0 {
		nested, nestedDiags := decodeFields(content.Blocks)
		diags = append(diags, nestedDiags...)
		spec["fields"] = nested
	}
	return spec, diags
}
