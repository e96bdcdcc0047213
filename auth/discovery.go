package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
)

const discoveryPath = ".well-known/openid-configuration"

// DiscoveryURL returns the OpenID configuration location for domain.
func DiscoveryURL(domain string) string {
	return transport.JoinURL(domain, discoveryPath)
}

// FetchDiscoveryDocument retrieves the provider's OpenID configuration. The
// document is returned as published; only the token endpoint is required by
// the rest of the flow.
func (c *TokenClient) FetchDiscoveryDocument(ctx context.Context, domain string) (doc core.DiscoveryDocument, err error) {
	startedAt := time.Now()
	defer func() {
		c.observe(ctx, startedAt, "fetch_discovery", err, map[string]any{"domain": domain})
	}()

	req := core.TransportRequest{Method: http.MethodGet, URL: DiscoveryURL(domain)}
	if strings.TrimSpace(domain) == "" {
		return nil, transportFailure(core.KindDiscovery, req, nil, "identity domain is required")
	}
	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, transportFailure(core.KindDiscovery, req, err, "request failed")
	}
	if !res.Successful() {
		return nil, statusFailure(core.KindDiscovery, req, res, "unexpected status")
	}

	decoder := json.NewDecoder(bytes.NewReader(res.Body))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil || doc == nil {
		failure := statusFailure(core.KindDiscovery, req, res, "response is not a json object")
		failure.Cause = err
		return nil, failure
	}
	return doc, nil
}
