package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput          = "FHIRSEED_BAD_INPUT"
	ErrorConfigInvalid     = "FHIRSEED_CONFIG_INVALID"
	ErrorDiscoveryFailed   = "FHIRSEED_DISCOVERY_FAILED"
	ErrorAuthFailed        = "FHIRSEED_AUTH_FAILED"
	ErrorResourceFailed    = "FHIRSEED_RESOURCE_FAILED"
	ErrorCreationFailed    = "FHIRSEED_CREATION_FAILED"
	ErrorMissingIdentifier = "FHIRSEED_MISSING_IDENTIFIER"
	ErrorUpdateFailed      = "FHIRSEED_UPDATE_FAILED"
	ErrorExternalFailure   = "FHIRSEED_EXTERNAL_FAILURE"
	ErrorInternal          = "FHIRSEED_INTERNAL_ERROR"
)

type ErrorKind string

const (
	KindDiscovery         ErrorKind = "discovery"
	KindAuth              ErrorKind = "auth"
	KindResource          ErrorKind = "resource"
	KindCreation          ErrorKind = "creation"
	KindMissingIdentifier ErrorKind = "missing_identifier"
	KindUpdate            ErrorKind = "update"
)

var (
	ErrDiscovery         = errors.New("core: discovery failed")
	ErrAuth              = errors.New("core: authentication failed")
	ErrResource          = errors.New("core: resource request failed")
	ErrCreation          = errors.New("core: user creation failed")
	ErrMissingIdentifier = errors.New("core: user collision without pid")
	ErrUpdate            = errors.New("core: user update failed")
)

// OperationError is the failure of one HTTP step in a flow. It keeps the
// request context and the raw response body for operator diagnostics.
type OperationError struct {
	Kind       ErrorKind
	Method     string
	URL        string
	StatusCode int
	Body       string
	Username   string
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.sentinel().Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Username != "" {
		fmt.Fprintf(&b, " (user %q)", e.Username)
	}
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, ": %s %s", e.Method, e.URL)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " returned %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString(": ")
		b.WriteString(body)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *OperationError) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.sentinel()
}

func (e *OperationError) sentinel() error {
	switch e.Kind {
	case KindDiscovery:
		return ErrDiscovery
	case KindAuth:
		return ErrAuth
	case KindResource:
		return ErrResource
	case KindCreation:
		return ErrCreation
	case KindMissingIdentifier:
		return ErrMissingIdentifier
	case KindUpdate:
		return ErrUpdate
	default:
		return errors.New("core: operation failed")
	}
}

func (e *OperationError) ToServiceError() *goerrors.Error {
	if e == nil {
		return nil
	}
	category, textCode, code := operationEnvelope(e.Kind)
	if e.StatusCode > 0 {
		code = e.StatusCode
	}
	err := goerrors.New(e.Error(), category).
		WithCode(code).
		WithTextCode(textCode)
	metadata := map[string]any{"kind": string(e.Kind)}
	if e.Method != "" {
		metadata["method"] = e.Method
	}
	if e.URL != "" {
		metadata["url"] = e.URL
	}
	if e.StatusCode > 0 {
		metadata["status_code"] = e.StatusCode
	}
	if e.Body != "" {
		metadata["response_body"] = e.Body
	}
	if e.Username != "" {
		metadata["username"] = e.Username
	}
	err.WithMetadata(metadata)
	return err
}

func operationEnvelope(kind ErrorKind) (goerrors.Category, string, int) {
	switch kind {
	case KindDiscovery:
		return goerrors.CategoryExternal, ErrorDiscoveryFailed, http.StatusBadGateway
	case KindAuth:
		return goerrors.CategoryAuth, ErrorAuthFailed, http.StatusUnauthorized
	case KindResource:
		return goerrors.CategoryExternal, ErrorResourceFailed, http.StatusBadGateway
	case KindCreation:
		return goerrors.CategoryOperation, ErrorCreationFailed, http.StatusBadGateway
	case KindMissingIdentifier:
		return goerrors.CategoryConflict, ErrorMissingIdentifier, http.StatusConflict
	case KindUpdate:
		return goerrors.CategoryOperation, ErrorUpdateFailed, http.StatusBadGateway
	default:
		return goerrors.CategoryInternal, ErrorInternal, http.StatusInternalServerError
	}
}

// KindOf reports the flow error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr != nil {
		return opErr.Kind, true
	}
	return "", false
}

func BadInputError(message string, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorBadInput)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func configError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryValidation).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorConfigInvalid)
}

// MapError normalizes any error into a go-errors envelope for diagnostics.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) && opErr != nil {
		return opErr.ToServiceError()
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusFor(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorAuthFailed
	case goerrors.CategoryExternal:
		return ErrorExternalFailure
	default:
		return ErrorInternal
	}
}

func httpStatusFor(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
