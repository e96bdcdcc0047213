package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"github.com/joho/godotenv"
)

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, layers ConfigLayers) (Config, error)
}

// ConfigLayers holds the raw settings of each source, lowest priority first
// after the defaults.
type ConfigLayers struct {
	Dotenv      map[string]any
	Environment map[string]any
	Runtime     map[string]any
}

type envBinding struct {
	name string
	path string
}

var envBindings = []envBinding{
	{name: "FHIR_ENDPOINT", path: "fhir_endpoint"},
	{name: "USER_MGMNT_ENDPOINT", path: "user_mgmt_endpoint"},
	{name: "SEED_USERS_FILEPATH", path: "seed_users_filepath"},
	{name: "LOG_LEVEL", path: "log_level"},
	{name: "IDENTITY_DOMAIN", path: "identity.domain"},
	{name: "IDENTITY_CLIENT_ID", path: "identity.client_id"},
	{name: "IDENTITY_CLIENT_SECRET", path: "identity.client_secret"},
	{name: "IDENTITY_AUDIENCE", path: "identity.audience"},
	{name: "LEDGER_DRIVER", path: "ledger.driver"},
	{name: "LEDGER_DSN", path: "ledger.dsn"},
}

// EnvironmentLoader reads settings from the process environment.
type EnvironmentLoader struct {
	Lookup func(key string) (string, bool)
}

func (l EnvironmentLoader) LoadRaw(context.Context) (map[string]any, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return bindEnv(lookup), nil
}

// DotenvLoader reads settings from a .env file. With no Path it walks up from
// SearchFrom (or the working directory) and uses the first .env it finds; a
// missing file is not an error in that case.
type DotenvLoader struct {
	Path       string
	SearchFrom string
}

func (l DotenvLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		found, err := findDotenv(l.SearchFrom)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return map[string]any{}, nil
		}
		path = found
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("core: read env file %s: %w", path, err)
	}
	return bindEnv(func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}), nil
}

func findDotenv(start string) (string, error) {
	dir := strings.TrimSpace(start)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("core: resolve working directory: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func bindEnv(lookup func(string) (string, bool)) map[string]any {
	raw := map[string]any{}
	for _, binding := range envBindings {
		value, ok := lookup(binding.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		setPath(raw, binding.path, strings.TrimSpace(value))
	}
	return raw
}

func setPath(target map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := target
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// ConfigLoader resolves Config once at process start:
// defaults < .env file < process environment < runtime overrides.
type ConfigLoader struct {
	Dotenv      RawConfigLoader
	Environment RawConfigLoader
	Resolver    OptionsResolver
}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		Dotenv:      DotenvLoader{},
		Environment: EnvironmentLoader{},
		Resolver:    GoOptionsResolver{},
	}
}

func (l *ConfigLoader) Load(ctx context.Context, defaults Config, runtime Config) (Config, error) {
	if l == nil {
		return defaults, nil
	}
	layers := ConfigLayers{Runtime: configToLayerMap(runtime, false)}
	if l.Dotenv != nil {
		values, err := l.Dotenv.LoadRaw(ctx)
		if err != nil {
			return Config{}, err
		}
		layers.Dotenv = values
	}
	if l.Environment != nil {
		values, err := l.Environment.LoadRaw(ctx)
		if err != nil {
			return Config{}, err
		}
		layers.Environment = values
	}

	resolver := l.Resolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	return resolver.Resolve(defaults, layers)
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, layers ConfigLayers) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("dotenv", 10),
			nonNilLayer(layers.Dotenv),
			opts.WithSnapshotID[map[string]any]("dotenv"),
		),
		opts.NewLayer(
			opts.NewScope("environment", 20),
			nonNilLayer(layers.Environment),
			opts.WithSnapshotID[map[string]any]("environment"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 30),
			nonNilLayer(layers.Runtime),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func nonNilLayer(values map[string]any) map[string]any {
	if values == nil {
		return map[string]any{}
	}
	return values
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	put := func(key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			setPath(layer, key, value)
		}
	}
	put("service_name", cfg.ServiceName)
	put("fhir_endpoint", cfg.FHIREndpoint)
	put("user_mgmt_endpoint", cfg.UserManagementEndpoint)
	put("seed_users_filepath", cfg.SeedUsersFilePath)
	put("log_level", cfg.LogLevel)
	put("identity.domain", cfg.Identity.Domain)
	put("identity.client_id", cfg.Identity.ClientID)
	put("identity.client_secret", cfg.Identity.ClientSecret)
	put("identity.audience", cfg.Identity.Audience)
	put("ledger.driver", cfg.Ledger.Driver)
	put("ledger.dsn", cfg.Ledger.DSN)
	return layer
}
