package command

import (
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
)

const (
	TypeSeedUsers   = "fhirseed.command.users.seed"
	TypeAuthSandbox = "fhirseed.command.auth.sandbox"
)

type SeedUsersMessage struct {
	Request core.SeedUsersRequest
}

func (SeedUsersMessage) Type() string { return TypeSeedUsers }

func (m SeedUsersMessage) Validate() error {
	if strings.TrimSpace(m.Request.ClientID) == "" {
		return commandValidationError("client_id", "admin client id is required")
	}
	if strings.TrimSpace(m.Request.ClientSecret) == "" {
		return commandValidationError("client_secret", "admin client secret is required")
	}
	if strings.TrimSpace(m.Request.FilePath) == "" {
		return commandValidationError("seed_users_filepath", "seed users file path is required")
	}
	return nil
}

type AuthSandboxMessage struct {
	Request core.SandboxRequest
}

func (AuthSandboxMessage) Type() string { return TypeAuthSandbox }

// Validate leaves empty credentials and endpoints alone; the service fills
// them from the loaded configuration.
func (m AuthSandboxMessage) Validate() error {
	if strings.ContainsAny(m.Request.ResourceType, "/?#") {
		return commandValidationError("resource", "resource type must be a single path segment")
	}
	if m.Request.Alternate && m.Request.Introspect {
		return commandInvalidInputError("command: introspection needs the discovery flow")
	}
	return nil
}
