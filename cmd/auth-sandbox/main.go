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

type flags struct {
	domain       string
	clientID     string
	clientSecret string
	audience     string
	fhirEndpoint string
	resource     string
	introspect   bool
	alternate    bool
}

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
	f := flags{}
	cmd := &cobra.Command{
		Use:   "auth-sandbox",
		Short: "Exercise the client-credentials flow against a protected FHIR endpoint",
		Long: "Fetches the identity provider's OpenID configuration, exchanges client\n" +
			"credentials for an access token and uses it to read a FHIR resource.\n" +
			"Unset flags fall back to IDENTITY_* and FHIR_ENDPOINT.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			runtime, err := cli.Bootstrap(ctx, fhirseed.Config{
				FHIREndpoint: f.fhirEndpoint,
				Identity: fhirseed.IdentityConfig{
					Domain:       f.domain,
					ClientID:     f.clientID,
					ClientSecret: f.clientSecret,
					Audience:     f.audience,
				},
			}, stderr)
			if err != nil {
				return err
			}
			defer runtime.Close()

			result, err := runtime.Facade.RunSandbox(ctx, fhirseed.SandboxRequest{
				ResourceType: f.resource,
				Introspect:   f.introspect,
				Alternate:    f.alternate,
			})
			if err != nil {
				return err
			}
			return printResult(stdout, result)
		},
	}
	cmd.Flags().StringVar(&f.domain, "domain", "", "identity provider base url (IDENTITY_DOMAIN)")
	cmd.Flags().StringVar(&f.clientID, "client-id", "", "client id (IDENTITY_CLIENT_ID)")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", "", "client secret (IDENTITY_CLIENT_SECRET)")
	cmd.Flags().StringVar(&f.audience, "audience", "", "token audience (IDENTITY_AUDIENCE)")
	cmd.Flags().StringVar(&f.fhirEndpoint, "fhir-endpoint", "", "FHIR server base url (FHIR_ENDPOINT)")
	cmd.Flags().StringVar(&f.resource, "resource", "Patient", "FHIR resource type to read")
	cmd.Flags().BoolVar(&f.introspect, "introspect", false, "introspect the issued token")
	cmd.Flags().BoolVar(&f.alternate, "alternate", false, "use {fhir-endpoint}/auth/token instead of discovery")
	return cmd
}

func printResult(w io.Writer, result fhirseed.SandboxResult) error {
	if result.Discovery != nil {
		if err := cli.PrintSection(w, "Get OIDC Configuration", result.Discovery); err != nil {
			return err
		}
	}
	if err := cli.PrintSection(w, "Get Access Token", result.Token.Map()); err != nil {
		return err
	}
	if result.Introspection != nil {
		if err := cli.PrintSection(w, "Introspect Token", result.Introspection); err != nil {
			return err
		}
	}
	if err := cli.PrintSection(w, "Send FHIR request", result.Resource); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "✅ Test m2m complete")
	return err
}
