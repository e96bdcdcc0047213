package fhirseed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
)

// upstream serves the identity provider, the FHIR endpoint and the
// user-management API from one test server.
type upstream struct {
	mu          sync.Mutex
	server      *httptest.Server
	tokenStatus int
	bearer      []string
	userCalls   []string
	users       map[string]int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	up := &upstream{tokenStatus: http.StatusOK, users: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/fhir/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 up.server.URL + "/realms/fhir",
			"token_endpoint":         up.server.URL + "/realms/fhir/token",
			"introspection_endpoint": up.server.URL + "/realms/fhir/introspect",
		})
	})
	mux.HandleFunc("/realms/fhir/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if up.tokenStatus != http.StatusOK || r.PostForm.Get("client_secret") != "m2m-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"sandbox-token","token_type":"Bearer","expires_in":60}`))
	})
	mux.HandleFunc("/realms/fhir/introspect", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"active":true,"token":%q}`, r.PostForm.Get("token"))
	})
	mux.HandleFunc("/fhir/auth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"alternate-token"}`))
	})
	mux.HandleFunc("/fhir/", func(w http.ResponseWriter, r *http.Request) {
		up.mu.Lock()
		up.bearer = append(up.bearer, r.Header.Get("Authorization"))
		up.mu.Unlock()
		w.Header().Set("Content-Type", "application/fhir+json")
		_, _ = fmt.Fprintf(w, `{"resourceType":"Bundle","type":"searchset","link":[{"url":%q}]}`, r.URL.Path)
	})
	mux.HandleFunc("/user-management/", func(w http.ResponseWriter, r *http.Request) {
		up.mu.Lock()
		defer up.mu.Unlock()
		up.userCalls = append(up.userCalls, r.Method+" "+r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		username, _ := body["username"].(string)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			if _, exists := up.users[username]; exists {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = fmt.Fprintf(w, `{"error":"User %s already exists"}`, username)
				return
			}
			up.users[username] = len(up.users) + 1
		}
		body["pid"] = up.users[username]
		_ = json.NewEncoder(w).Encode(body)
	})
	up.server = httptest.NewServer(mux)
	t.Cleanup(up.server.Close)
	return up
}

func (u *upstream) config() Config {
	cfg := DefaultConfig()
	cfg.FHIREndpoint = u.server.URL + "/fhir"
	cfg.UserManagementEndpoint = u.server.URL + "/user-management"
	cfg.Identity = IdentityConfig{
		Domain:       u.server.URL + "/realms/fhir",
		ClientID:     "m2m",
		ClientSecret: "m2m-secret",
		Audience:     "fhir-api",
	}
	return cfg
}

func newTestService(t *testing.T, cfg Config, opts ...Option) *Service {
	t.Helper()
	svc, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_RunSandboxDiscoveryFlow(t *testing.T) {
	up := newUpstream(t)
	svc := newTestService(t, up.config(), WithHTTPClient(up.server.Client()))

	result, err := svc.RunSandbox(context.Background(), SandboxRequest{Introspect: true})
	if err != nil {
		t.Fatalf("run sandbox: %v", err)
	}
	if result.Discovery.TokenEndpoint() != up.server.URL+"/realms/fhir/token" {
		t.Fatalf("unexpected discovery document: %#v", result.Discovery)
	}
	if result.Token.AccessToken != "sandbox-token" || result.Token.ExpiresIn != 60 {
		t.Fatalf("unexpected token: %#v", result.Token)
	}
	if result.Introspection["active"] != true || result.Introspection["token"] != "sandbox-token" {
		t.Fatalf("unexpected introspection: %#v", result.Introspection)
	}
	if result.ResourceURL != up.server.URL+"/fhir/Patient" {
		t.Fatalf("expected default Patient resource, got %q", result.ResourceURL)
	}
	if result.Resource["resourceType"] != "Bundle" {
		t.Fatalf("unexpected resource: %#v", result.Resource)
	}
	if len(up.bearer) != 1 || up.bearer[0] != "Bearer sandbox-token" {
		t.Fatalf("expected one bearer call, got %#v", up.bearer)
	}
}

func TestService_RunSandboxAlternateFlow(t *testing.T) {
	up := newUpstream(t)
	cfg := up.config()
	cfg.Identity.Domain = ""
	svc := newTestService(t, cfg, WithHTTPClient(up.server.Client()))

	result, err := svc.RunSandbox(context.Background(), SandboxRequest{Alternate: true, ResourceType: "Observation"})
	if err != nil {
		t.Fatalf("run alternate sandbox: %v", err)
	}
	if result.Token.AccessToken != "alternate-token" || result.Discovery != nil {
		t.Fatalf("unexpected alternate result: %#v", result)
	}
	if !strings.HasSuffix(result.ResourceURL, "/fhir/Observation") {
		t.Fatalf("unexpected resource url %q", result.ResourceURL)
	}
	if up.bearer[0] != "Bearer alternate-token" {
		t.Fatalf("expected alternate bearer, got %#v", up.bearer)
	}
}

func TestService_RunSandboxAuthFailureSkipsResourceCall(t *testing.T) {
	up := newUpstream(t)
	up.tokenStatus = http.StatusUnauthorized
	svc := newTestService(t, up.config(), WithHTTPClient(up.server.Client()))

	_, err := svc.RunSandbox(context.Background(), SandboxRequest{})
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var opErr *core.OperationError
	if !errors.As(err, &opErr) || opErr.StatusCode != http.StatusUnauthorized || !strings.Contains(opErr.Body, "invalid_client") {
		t.Fatalf("expected status and body on auth error, got %#v", opErr)
	}
	if len(up.bearer) != 0 {
		t.Fatalf("resource endpoint must not be called after auth failure")
	}
}

func TestService_RunSandboxRequiresCredentials(t *testing.T) {
	up := newUpstream(t)
	cfg := up.config()
	cfg.Identity.ClientSecret = ""
	svc := newTestService(t, cfg, WithHTTPClient(up.server.Client()))

	if _, err := svc.RunSandbox(context.Background(), SandboxRequest{ClientID: "m2m"}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
}

func TestFacade_SeedUsersThroughDispatcherWithLedger(t *testing.T) {
	up := newUpstream(t)
	dir := t.TempDir()
	cfg := up.config()
	cfg.Ledger = LedgerConfig{Driver: core.LedgerDriverSQLite, DSN: filepath.Join(dir, "ledger.db")}
	svc := newTestService(t, cfg, WithHTTPClient(up.server.Client()))
	if svc.Ledger() == nil {
		t.Fatalf("expected ledger to be opened from config")
	}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	t.Cleanup(facade.Close)

	path := filepath.Join(dir, "users.json")
	content := `[{"username":"alice","nodeId":"Master","moduleId":"local_security"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	summary, err := facade.SeedUsers(ctx, SeedUsersRequest{ClientID: "admin", ClientSecret: "secret", FilePath: path})
	if err != nil {
		t.Fatalf("seed users: %v", err)
	}
	if summary.Created != 1 || summary.Processed != 1 || summary.RunID == "" {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	outcomes, err := facade.ListRunOutcomes(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Username != "alice" || outcomes[0].Action != core.ReconcileActionCreated {
		t.Fatalf("unexpected ledger outcomes: %#v", outcomes)
	}

	second, err := facade.SeedUsers(ctx, SeedUsersRequest{ClientID: "admin", ClientSecret: "secret", FilePath: path})
	if err != nil {
		t.Fatalf("second seed run: %v", err)
	}
	if second.Created != 0 || second.Updated != 1 {
		t.Fatalf("expected second run to update, got %#v", second)
	}
	latest, err := facade.LatestUserOutcome(ctx, "alice")
	if err != nil {
		t.Fatalf("latest outcome: %v", err)
	}
	if !latest.Found || latest.Outcome.RunID != second.RunID || latest.Outcome.Action != core.ReconcileActionUpdated {
		t.Fatalf("expected latest outcome from second run, got %#v", latest)
	}
	want := []string{
		"POST /user-management/Master/local_security",
		"POST /user-management/Master/local_security",
		"PUT /user-management/Master/local_security/1",
	}
	if strings.Join(up.userCalls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected user-management calls: %#v", up.userCalls)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FHIREndpoint = "not a url"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected invalid config to fail")
	}
}

func TestService_SeedUsersRequiresEndpoint(t *testing.T) {
	svc := newTestService(t, DefaultConfig())
	_, err := svc.SeedUsers(context.Background(), SeedUsersRequest{ClientID: "admin", ClientSecret: "secret"})
	if err == nil {
		t.Fatalf("expected missing user management endpoint to fail")
	}
}

func TestFacade_QueriesWithoutLedgerFail(t *testing.T) {
	up := newUpstream(t)
	svc := newTestService(t, up.config(), WithHTTPClient(up.server.Client()))
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	t.Cleanup(facade.Close)

	if _, err := facade.ListRunOutcomes(context.Background(), "run-1"); err == nil {
		t.Fatalf("expected query without ledger to fail")
	}
}
