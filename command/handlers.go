package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-fhir-seed/core"
)

type SeedService interface {
	SeedUsers(ctx context.Context, req core.SeedUsersRequest) (core.BatchSummary, error)
}

type SandboxService interface {
	RunSandbox(ctx context.Context, req core.SandboxRequest) (core.SandboxResult, error)
}

type SeedUsersCommand struct {
	service SeedService
}

func NewSeedUsersCommand(service SeedService) *SeedUsersCommand {
	return &SeedUsersCommand{service: service}
}

func (c *SeedUsersCommand) Execute(ctx context.Context, msg SeedUsersMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: seed service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.SeedUsers(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AuthSandboxCommand struct {
	service SandboxService
}

func NewAuthSandboxCommand(service SandboxService) *AuthSandboxCommand {
	return &AuthSandboxCommand{service: service}
}

func (c *AuthSandboxCommand) Execute(ctx context.Context, msg AuthSandboxMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sandbox service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.RunSandbox(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
