package core

const DefaultSandboxResource = "Patient"

// SeedUsersRequest names the admin credentials used for HTTP Basic auth against
// the user-management API and the batch file to reconcile in place.
type SeedUsersRequest struct {
	ClientID     string
	ClientSecret string
	FilePath     string
}

// SandboxRequest drives one client-credentials round trip. Empty fields fall
// back to the loaded Config.
type SandboxRequest struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Audience     string
	FHIREndpoint string
	ResourceType string
	Introspect   bool
	Alternate    bool
}

type SandboxResult struct {
	Discovery     DiscoveryDocument
	Token         TokenResponse
	ResourceURL   string
	Resource      map[string]any
	Introspection map[string]any
}
