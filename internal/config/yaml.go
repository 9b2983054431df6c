package config

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/schema"
	"gopkg.in/yaml.v3"
)

// YAMLLoader reads YAML declarations. JSON is valid YAML, so it reads JSON
// files as well.
type YAMLLoader struct{}

// NewYAMLLoader creates a new YAML declaration loader.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

// Load implements Loader.
func (l *YAMLLoader) Load(ctx context.Context, path string) (schema.Declaration, error) {
	ctxlog.FromContext(ctx).Debug("Decoding YAML declaration.", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file %s: %w", path, err)
	}
	decl, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode declaration file %s: %w", path, err)
	}
	return decl, nil
}

// ParseYAML decodes a YAML or JSON document into a declaration tree.
func ParseYAML(data []byte) (schema.Declaration, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return schema.Declaration{}, nil
	}
	return schema.Declaration(raw), nil
}
