package fhirseed

import (
	"context"

	"github.com/goliatone/go-fhir-seed/core"
)

type Config = core.Config

type IdentityConfig = core.IdentityConfig

type LedgerConfig = core.LedgerConfig

type SeedUsersRequest = core.SeedUsersRequest

type SandboxRequest = core.SandboxRequest

type SandboxResult = core.SandboxResult

type BatchSummary = core.BatchSummary

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig resolves defaults < .env < process environment < runtime.
func LoadConfig(ctx context.Context, runtime Config) (Config, error) {
	return core.NewConfigLoader().Load(ctx, core.DefaultConfig(), runtime)
}
