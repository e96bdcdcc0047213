package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
)

// IntrospectionRequest asks the provider whether a token is active.
type IntrospectionRequest struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Token        string
}

func (c *TokenClient) IntrospectToken(ctx context.Context, req IntrospectionRequest) (claims map[string]any, err error) {
	startedAt := time.Now()
	defer func() {
		c.observe(ctx, startedAt, "introspect_token", err, map[string]any{
			"introspection_endpoint": req.Endpoint,
			"client_id":              req.ClientID,
		})
	}()

	request := transport.FormRequest(strings.TrimSpace(req.Endpoint), url.Values{
		"client_id":       {strings.TrimSpace(req.ClientID)},
		"client_secret":   {strings.TrimSpace(req.ClientSecret)},
		"token":           {strings.TrimSpace(req.Token)},
		"token_type_hint": {"access_token"},
	})
	if request.URL == "" {
		return nil, transportFailure(core.KindAuth, request, nil, "introspection endpoint is required")
	}
	res, err := c.transport.Do(ctx, request)
	if err != nil {
		return nil, transportFailure(core.KindAuth, request, err, "introspection request failed")
	}
	if !res.Successful() {
		return nil, statusFailure(core.KindAuth, request, res, "introspection rejected")
	}

	decoder := json.NewDecoder(bytes.NewReader(res.Body))
	decoder.UseNumber()
	if decodeErr := decoder.Decode(&claims); decodeErr != nil {
		failure := statusFailure(core.KindAuth, request, res, "introspection response is not a json object")
		failure.Cause = decodeErr
		return nil, failure
	}
	if claims == nil {
		claims = map[string]any{}
	}
	return claims, nil
}
