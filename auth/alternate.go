package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
	"github.com/tidwall/gjson"
)

const alternateTokenPath = "auth/token"

// AcquireTokenAlternate requests a token from a FHIR server's own token
// endpoint at {baseURL}/auth/token using a JSON body.
func (c *TokenClient) AcquireTokenAlternate(ctx context.Context, baseURL string, clientID string, clientSecret string) (accessToken string, err error) {
	startedAt := time.Now()
	defer func() {
		c.observe(ctx, startedAt, "acquire_token_alternate", err, map[string]any{
			"base_url":  baseURL,
			"client_id": clientID,
		})
	}()

	req, err := transport.JSONRequest(http.MethodPost, transport.JoinURL(baseURL, alternateTokenPath), map[string]any{
		"client_id":     clientID,
		"client_secret": clientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}
	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return "", transportFailure(core.KindAuth, req, err, "token request failed")
	}
	if !res.Successful() {
		return "", statusFailure(core.KindAuth, req, res, "token endpoint rejected the request")
	}
	token := gjson.GetBytes(res.Body, "access_token")
	if !token.Exists() || token.String() == "" {
		return "", statusFailure(core.KindAuth, req, res, "response is missing access_token")
	}
	return token.String(), nil
}
