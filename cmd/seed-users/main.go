package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	fhirseed "github.com/goliatone/go-fhir-seed"
	"github.com/goliatone/go-fhir-seed/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		cli.PrintDiagnostic(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newCommand(stdout io.Writer, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-users <client_id> <client_secret> <seed_users_filepath>",
		Short: "Create or update the users listed in a JSON file",
		Long: "Creates every user in the file through the user-management API, updating\n" +
			"existing usernames by pid, then writes the merged records back to the file.",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runtime, err := cli.Bootstrap(ctx, fhirseed.Config{SeedUsersFilePath: args[2]}, stderr)
			if err != nil {
				return err
			}
			defer runtime.Close()

			summary, err := runtime.Facade.SeedUsers(ctx, fhirseed.SeedUsersRequest{
				ClientID:     args[0],
				ClientSecret: args[1],
				FilePath:     args[2],
			})
			if err != nil {
				return err
			}
			runtime.Logger.Debug("seed run finished",
				"run_id", summary.RunID,
				"created", summary.Created,
				"updated", summary.Updated,
			)
			_, err = fmt.Fprintln(stdout, "✅ Seed user data complete")
			return err
		},
	}
}
