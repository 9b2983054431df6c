package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/vk/fakegridgo/internal/config"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/hcl"
	"github.com/vk/fakegridgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	loader   *config.Dispatcher
	config   *Config
	// create opens the output file of the document sinks.
	create func(path string) (io.WriteCloser, error)
}

// NewApp is the constructor for the main application. Records are written to
// outW and logs to logW. With no modules given, the core modules are
// registered.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "capabilities", len(reg.Names()))

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A module registered a batch or unique form without a single form.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	loader := config.NewDispatcher().
		Register(hcl.NewLoader(), ".hcl").
		Register(config.NewYAMLLoader(), ".yaml", ".yml", ".json")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		loader:   loader,
		config:   cfg,
		create:   func(path string) (io.WriteCloser, error) { return os.Create(path) },
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}
