package main

import (
	"bytes"
	"strings"
	"testing"

	fhirseed "github.com/goliatone/go-fhir-seed"
	"github.com/goliatone/go-fhir-seed/core"
)

func TestPrintResult_Sections(t *testing.T) {
	out := &bytes.Buffer{}
	err := printResult(out, fhirseed.SandboxResult{
		Discovery: core.DiscoveryDocument{"token_endpoint": "https://idp/token"},
		Token:     core.TokenResponse{AccessToken: "abc", TokenType: "Bearer"},
		Resource:  map[string]any{"resourceType": "Bundle"},
	})
	if err != nil {
		t.Fatalf("print result: %v", err)
	}
	text := out.String()
	order := []string{
		"Get OIDC Configuration",
		"https://idp/token",
		"Get Access Token",
		`"access_token": "abc"`,
		"Send FHIR request",
		`"resourceType": "Bundle"`,
		"✅ Test m2m complete",
	}
	last := -1
	for _, part := range order {
		index := strings.Index(text, part)
		if index <= last {
			t.Fatalf("expected %q after previous section in %q", part, text)
		}
		last = index
	}
	if strings.Contains(text, "Introspect Token") {
		t.Fatalf("did not expect introspection section")
	}
}

func TestCommand_FlagDefaults(t *testing.T) {
	cmd := newCommand(&bytes.Buffer{}, &bytes.Buffer{})
	resource := cmd.Flags().Lookup("resource")
	if resource == nil || resource.DefValue != "Patient" {
		t.Fatalf("expected resource flag defaulting to Patient")
	}
	for _, name := range []string{"domain", "client-id", "client-secret", "audience", "fhir-endpoint", "introspect", "alternate"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("expected --%s flag", name)
		}
	}
	cmd.SetArgs([]string{"unexpected"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected positional args to be rejected")
	}
}
