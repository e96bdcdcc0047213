package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-fhir-seed/core"
)

type identityProvider struct {
	t          *testing.T
	server     *httptest.Server
	tokenPaths []string
	forms      []map[string]string
	tokenCode  int
	tokenBody  string
}

func newIdentityProvider(t *testing.T) *identityProvider {
	t.Helper()
	idp := &identityProvider{
		t:         t,
		tokenCode: http.StatusOK,
		tokenBody: `{"access_token":"abc","token_type":"Bearer","expires_in":300,"scope":"fhir"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/fhir/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET discovery, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 idp.server.URL + "/realms/fhir",
			"token_endpoint":         idp.server.URL + "/token",
			"introspection_endpoint": idp.server.URL + "/introspect",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form := map[string]string{}
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		idp.tokenPaths = append(idp.tokenPaths, r.URL.Path)
		idp.forms = append(idp.forms, form)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(idp.tokenCode)
		_, _ = w.Write([]byte(idp.tokenBody))
	})
	mux.HandleFunc("/introspect", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("token") != "abc" || r.PostForm.Get("token_type_hint") != "access_token" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_request"}`))
			return
		}
		_, _ = w.Write([]byte(`{"active":true,"client_id":"client"}`))
	})
	mux.HandleFunc("/fhir/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["client_id"] != "client" || payload["grant_type"] != "client_credentials" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad client"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"alt-token"}`))
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func TestTokenClient_DiscoveryThenClientCredentials(t *testing.T) {
	idp := newIdentityProvider(t)
	client := NewTokenClient(WithHTTPClient(idp.server.Client()))

	doc, err := client.FetchDiscoveryDocument(context.Background(), idp.server.URL+"/realms/fhir")
	if err != nil {
		t.Fatalf("fetch discovery: %v", err)
	}
	if doc.TokenEndpoint() != idp.server.URL+"/token" {
		t.Fatalf("unexpected token endpoint %q", doc.TokenEndpoint())
	}

	token, err := client.AcquireToken(context.Background(), TokenRequest{
		TokenEndpoint: doc.TokenEndpoint(),
		ClientID:      "client",
		ClientSecret:  "secret",
		Audience:      "https://fhir.example.org",
	})
	if err != nil {
		t.Fatalf("acquire token: %v", err)
	}
	if token.AccessToken != "abc" || token.Scope != "fhir" || token.ExpiresIn != 300 {
		t.Fatalf("unexpected token response %#v", token)
	}
	if len(idp.tokenPaths) != 1 || idp.tokenPaths[0] != "/token" {
		t.Fatalf("expected exactly one post to /token, got %#v", idp.tokenPaths)
	}
	form := idp.forms[0]
	if form["grant_type"] != "client_credentials" || form["client_id"] != "client" || form["client_secret"] != "secret" {
		t.Fatalf("unexpected token form %#v", form)
	}
	if form["audience"] != "https://fhir.example.org" {
		t.Fatalf("expected audience in form, got %#v", form)
	}
}

func TestTokenClient_AcquireTokenFailureCarriesBody(t *testing.T) {
	idp := newIdentityProvider(t)
	idp.tokenCode = http.StatusUnauthorized
	idp.tokenBody = `{"error":"unauthorized_client","error_description":"Invalid client secret"}`
	client := NewTokenClient(WithHTTPClient(idp.server.Client()))

	_, err := client.AcquireToken(context.Background(), TokenRequest{
		TokenEndpoint: idp.server.URL + "/token",
		ClientID:      "client",
		ClientSecret:  "wrong",
	})
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	var opErr *core.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected operation error, got %T", err)
	}
	if opErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status, got %d", opErr.StatusCode)
	}
	if !strings.Contains(opErr.Body, "Invalid client secret") {
		t.Fatalf("expected response body in error, got %q", opErr.Body)
	}
	if _, ok := idp.forms[0]["audience"]; ok {
		t.Fatalf("did not expect audience without configuration")
	}
}

func TestTokenClient_DiscoveryFailures(t *testing.T) {
	idp := newIdentityProvider(t)
	client := NewTokenClient(WithHTTPClient(idp.server.Client()))

	_, err := client.FetchDiscoveryDocument(context.Background(), idp.server.URL+"/realms/missing")
	if !errors.Is(err, core.ErrDiscovery) {
		t.Fatalf("expected discovery error, got %v", err)
	}
	var opErr *core.OperationError
	if !errors.As(err, &opErr) || opErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 discovery failure, got %v", err)
	}

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer plain.Close()
	_, err = client.FetchDiscoveryDocument(context.Background(), plain.URL)
	if !errors.Is(err, core.ErrDiscovery) {
		t.Fatalf("expected discovery error for non-json body, got %v", err)
	}
	if !strings.Contains(err.Error(), "<html>login</html>") {
		t.Fatalf("expected body in error text, got %q", err.Error())
	}
}

func TestTokenClient_AcquireTokenAlternate(t *testing.T) {
	idp := newIdentityProvider(t)
	client := NewTokenClient(WithHTTPClient(idp.server.Client()))

	token, err := client.AcquireTokenAlternate(context.Background(), idp.server.URL+"/fhir", "client", "secret")
	if err != nil {
		t.Fatalf("alternate token: %v", err)
	}
	if token != "alt-token" {
		t.Fatalf("unexpected token %q", token)
	}

	_, err = client.AcquireTokenAlternate(context.Background(), idp.server.URL+"/fhir", "other", "secret")
	if !errors.Is(err, core.ErrAuth) || !strings.Contains(err.Error(), "bad client") {
		t.Fatalf("expected auth error with body, got %v", err)
	}
}

func TestTokenClient_IntrospectToken(t *testing.T) {
	idp := newIdentityProvider(t)
	client := NewTokenClient(WithHTTPClient(idp.server.Client()))

	claims, err := client.IntrospectToken(context.Background(), IntrospectionRequest{
		Endpoint:     idp.server.URL + "/introspect",
		ClientID:     "client",
		ClientSecret: "secret",
		Token:        "abc",
	})
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	if claims["active"] != true {
		t.Fatalf("expected active token, got %#v", claims)
	}

	_, err = client.IntrospectToken(context.Background(), IntrospectionRequest{
		Endpoint: idp.server.URL + "/introspect",
		Token:    "other",
	})
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
