package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-fhir-seed/core"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// JSONRequest builds a request whose body is payload encoded as JSON.
func JSONRequest(method string, rawURL string, payload any) (core.TransportRequest, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return core.TransportRequest{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: encode json request body",
			http.StatusBadRequest,
			map[string]any{"method": method, "url": rawURL},
		)
	}
	return core.TransportRequest{
		Method: method,
		URL:    rawURL,
		Headers: map[string]string{
			"Content-Type": ContentTypeJSON,
		},
		Body: body,
	}, nil
}

// FormRequest builds a POST with a url-encoded form body.
func FormRequest(rawURL string, values url.Values) core.TransportRequest {
	return core.TransportRequest{
		Method: http.MethodPost,
		URL:    rawURL,
		Headers: map[string]string{
			"Content-Type": ContentTypeForm,
		},
		Body: []byte(values.Encode()),
	}
}

// JoinURL appends path segments to base with exactly one slash between parts.
func JoinURL(base string, segments ...string) string {
	out := strings.TrimRight(strings.TrimSpace(base), "/")
	for _, segment := range segments {
		segment = strings.Trim(strings.TrimSpace(segment), "/")
		if segment == "" {
			continue
		}
		out += "/" + segment
	}
	return out
}
