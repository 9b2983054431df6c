package app

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vk/fakegridgo/internal/ctxlog"
	"github.com/vk/fakegridgo/internal/engine"
	"github.com/vk/fakegridgo/internal/sampling"
	"github.com/vk/fakegridgo/internal/sink"
)

// Run generates the configured number of records and writes them to the
// configured sink.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	decl, err := a.loadDeclaration(ctx)
	if err != nil {
		return err
	}

	eng, err := a.engine()
	if err != nil {
		return err
	}

	a.logger.Info("Generating records...", "count", a.config.Count)
	records, err := eng.Records(ctx, decl, a.config.Count)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	out, closeOut, err := a.output()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	s, err := sink.New(a.config.Format, out, sink.Options{
		Single: a.config.Count == 1,
		Path:   a.config.OutputPath,
		Table:  a.config.SQLiteTable,
	})
	if err != nil {
		return err
	}
	if err := s.Write(ctx, records); err != nil {
		return fmt.Errorf("failed to write %s output: %w", a.config.Format, err)
	}
	a.logger.Info("Records written.", "count", len(records), "format", a.config.Format)

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Validate checks the configured declaration without generating anything.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	decl, err := a.loadDeclaration(ctx)
	if err != nil {
		return err
	}
	eng, err := a.engine()
	if err != nil {
		return err
	}
	plan, err := eng.Plan(ctx, decl, a.config.Count)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.outW, "Declaration is valid: %d fields.\n", len(plan.Fields))
	return err
}

// Capabilities prints a table of every registered capability.
func (a *App) Capabilities(_ context.Context) error {
	t := table.NewWriter()
	t.SetOutputMirror(a.outW)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Capability", "Batch", "Unique", "Description"})
	for _, c := range a.registry.Capabilities() {
		t.AppendRow(table.Row{c.Name, yesNo(c.Batch != nil), yesNo(c.Unique != nil), c.Description})
	}
	t.Render()
	return nil
}

// engine builds an engine over the configured random source. A zero seed is
// replaced with a random one, which is logged so the run can be repeated.
func (a *App) engine() (*engine.Engine, error) {
	mode, err := sampling.ParseMode(a.config.RNGMode)
	if err != nil {
		return nil, err
	}
	seed := a.config.Seed
	if seed == 0 {
		seed = rand.Uint64()
		a.logger.Info("Using random seed.", "seed", seed)
	}
	return engine.New(a.registry, sampling.NewSource(seed, mode)), nil
}

// output returns where document sinks write: the configured file, or the
// app's writer.
func (a *App) output() (io.Writer, func() error, error) {
	if a.config.OutputPath == "" || a.config.Format == sink.FormatSQLite {
		return a.outW, func() error { return nil }, nil
	}
	f, err := a.create(a.config.OutputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
