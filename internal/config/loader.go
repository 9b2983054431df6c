package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/fsutil"
	"github.com/vk/fakegridgo/internal/schema"
)

// Loader is the interface for a format-specific declaration loader.
type Loader interface {
	// Load reads a single file into a declaration tree.
	Load(ctx context.Context, path string) (schema.Declaration, error)
}

// Dispatcher routes files to the loader registered for their extension.
type Dispatcher struct {
	loaders map[string]Loader
}

// NewDispatcher returns a dispatcher with no loaders.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{loaders: make(map[string]Loader)}
}

// Register makes l handle files with the given extensions, e.g. ".yaml".
func (d *Dispatcher) Register(l Loader, extensions ...string) *Dispatcher {
	for _, ext := range extensions {
		d.loaders[strings.ToLower(ext)] = l
	}
	return d
}

// Extensions returns the sorted extensions the dispatcher handles.
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.loaders))
	for ext := range d.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load reads every declaration file found under paths and merges their top
// level fields. A field declared in two files is an error.
func (d *Dispatcher) Load(ctx context.Context, paths ...string) (schema.Declaration, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Declaration loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, d.Extensions()...)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no declaration files found in %v", paths)
	}

	merged := schema.Declaration{}
	origin := make(map[string]string)
	for _, file := range files {
		loader, ok := d.loaders[strings.ToLower(filepath.Ext(file))]
		if !ok {
			return nil, fmt.Errorf("unsupported declaration file %s", file)
		}
		decl, err := loader.Load(ctx, file)
		if err != nil {
			return nil, err
		}
		for name, spec := range decl {
			if prev, ok := origin[name]; ok {
				return nil, fmt.Errorf("field %q declared in both %s and %s", name, prev, file)
			}
			origin[name] = file
			merged[name] = spec
		}
		logger.Debug("Loaded declaration file.", "path", file, "fields", len(decl))
	}

	logger.Debug("Declaration loading complete.", "files", len(files), "fields", len(merged))
	return merged, nil
}
