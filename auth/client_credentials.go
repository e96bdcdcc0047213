package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenRequest describes one client-credentials grant.
type TokenRequest struct {
	TokenEndpoint string
	ClientID      string
	ClientSecret  string
	Audience      string
	Scopes        []string
}

// AcquireToken exchanges client credentials for a bearer token. The
// credentials travel in the form body and the optional audience is sent as an
// extra form parameter.
func (c *TokenClient) AcquireToken(ctx context.Context, req TokenRequest) (token core.TokenResponse, err error) {
	startedAt := time.Now()
	defer func() {
		c.observe(ctx, startedAt, "acquire_token", err, map[string]any{
			"token_endpoint": req.TokenEndpoint,
			"client_id":      req.ClientID,
		})
	}()
	if ctx == nil {
		ctx = context.Background()
	}

	request := core.TransportRequest{Method: http.MethodPost, URL: strings.TrimSpace(req.TokenEndpoint)}
	if request.URL == "" {
		return core.TokenResponse{}, transportFailure(core.KindAuth, request, nil, "token endpoint is required")
	}

	params := url.Values{}
	if audience := strings.TrimSpace(req.Audience); audience != "" {
		params.Set("audience", audience)
	}
	cfg := clientcredentials.Config{
		ClientID:       strings.TrimSpace(req.ClientID),
		ClientSecret:   strings.TrimSpace(req.ClientSecret),
		TokenURL:       request.URL,
		Scopes:         normalizeValues(req.Scopes),
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	issued, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return core.TokenResponse{}, tokenFailure(request, err)
	}
	return tokenResponseFrom(issued), nil
}

func tokenFailure(req core.TransportRequest, err error) *core.OperationError {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return transportFailure(core.KindAuth, req, err, "token request failed")
	}
	failure := &core.OperationError{
		Kind:    core.KindAuth,
		Method:  req.Method,
		URL:     req.URL,
		Body:    truncateBody(retrieveErr.Body),
		Message: describeTokenError(retrieveErr),
	}
	if retrieveErr.Response != nil {
		failure.StatusCode = retrieveErr.Response.StatusCode
	}
	return failure
}

func describeTokenError(err *oauth2.RetrieveError) string {
	if description := strings.TrimSpace(err.ErrorDescription); description != "" {
		return description
	}
	if code := strings.TrimSpace(err.ErrorCode); code != "" {
		return code
	}
	return "token endpoint rejected the request"
}

func tokenResponseFrom(token *oauth2.Token) core.TokenResponse {
	if token == nil {
		return core.TokenResponse{}
	}
	out := core.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		Expiry:      token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out
}
