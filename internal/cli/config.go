package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/vk/fakegridgo/internal/app"
)

// envPrefix prefixes the environment variables that override configuration,
// e.g. FAKEGRID_COUNT or FAKEGRID_RNG_MODE.
const envPrefix = "FAKEGRID_"

// defaultConfigFiles are looked up in the working directory when no config
// file is given.
var defaultConfigFiles = []string{"fakegrid.yaml", "fakegrid.yml"}

// findConfigFile finds the config file to use.
// Priority: explicit path > fakegrid.yaml > fakegrid.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range defaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadConfig merges configuration from defaults, the config file,
// environment variables and flags, in increasing order of precedence.
// declaration, when not empty, is the positional argument and wins over all.
func loadConfig(cfgFile string, flags *pflag.FlagSet, declaration string) (*app.Config, error) {
	k := koanf.New(".")

	def := app.DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]any{
		"count":        def.Count,
		"seed":         def.Seed,
		"rng_mode":     def.RNGMode,
		"format":       def.Format,
		"sqlite_table": def.SQLiteTable,
		"log_format":   def.LogFormat,
		"log_level":    def.LogLevel,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// FAKEGRID_RNG_MODE -> rng_mode
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg app.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if declaration != "" {
		cfg.DeclarationPath = declaration
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return app.NewConfig(cfg)
}
