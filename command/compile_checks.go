package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SeedUsersMessage]   = (*SeedUsersCommand)(nil)
	_ gocmd.Commander[AuthSandboxMessage] = (*AuthSandboxCommand)(nil)
)
