package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/schema"
)

// ErrNoDeclaration is returned by operations that need a declaration when
// the configuration names none.
var ErrNoDeclaration = errors.New("no declaration path given")

// loadDeclaration reads the configured declaration file or directory.
func (a *App) loadDeclaration(ctx context.Context) (schema.Declaration, error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.DeclarationPath == "" {
		return nil, ErrNoDeclaration
	}
	logger.Debug("Loading declaration...", "path", a.config.DeclarationPath)

	decl, err := a.loader.Load(ctx, a.config.DeclarationPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load declaration: %w", err)
	}
	logger.Info("Declaration loaded.", "path", a.config.DeclarationPath, "top_level_fields", len(decl))
	return decl, nil
}
