package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	FieldUsername = "username"
	FieldNodeID   = "nodeId"
	FieldModuleID = "moduleId"
	FieldPID      = "pid"
	FieldConsent  = "consent"
	FieldNotes    = "notes"
)

// UserRecord is one account to provision, keyed by the user-management API's
// field names. Server-assigned fields are merged back into it after a call.
type UserRecord map[string]any

func (r UserRecord) Username() string {
	return StringValue(r[FieldUsername])
}

// PID returns the server-assigned identifier. Empty strings and zero numbers
// count as absent.
func (r UserRecord) PID() (string, bool) {
	value, ok := r[FieldPID]
	if !ok || value == nil {
		return "", false
	}
	pid := StringValue(value)
	if pid == "" || pid == "0" {
		return "", false
	}
	return pid, true
}

func (r UserRecord) Clone() UserRecord {
	out := make(UserRecord, len(r))
	for key, value := range r {
		out[key] = value
	}
	return out
}

// Merge copies every field of source onto the record; source wins on conflict.
func (r UserRecord) Merge(source map[string]any) {
	for key, value := range source {
		r[key] = value
	}
}

type ReconciliationBatch []UserRecord

func (b ReconciliationBatch) Validate() error {
	for index, record := range b {
		if record == nil {
			return BadInputError(
				fmt.Sprintf("core: user record %d is not an object", index),
				map[string]any{"index": index},
			)
		}
		if record.Username() == "" {
			return BadInputError(
				fmt.Sprintf("core: user record %d is missing %s", index, FieldUsername),
				map[string]any{"index": index},
			)
		}
	}
	return nil
}

type ReconcileAction string

const (
	ReconcileActionCreated ReconcileAction = "created"
	ReconcileActionUpdated ReconcileAction = "updated"
	ReconcileActionFailed  ReconcileAction = "failed"
)

type ReconciledUser struct {
	Record     UserRecord
	Action     ReconcileAction
	PID        string
	StatusCode int
}

type BatchSummary struct {
	RunID     string
	Total     int
	Processed int
	Created   int
	Updated   int
}

type ReconcileOutcomeStatus string

const (
	ReconcileOutcomeOK    ReconcileOutcomeStatus = "ok"
	ReconcileOutcomeError ReconcileOutcomeStatus = "error"
)

type ReconcileOutcome struct {
	RunID      string
	Username   string
	NodeID     string
	ModuleID   string
	PID        string
	Action     ReconcileAction
	Status     ReconcileOutcomeStatus
	StatusCode int
	Error      string
	RecordedAt time.Time
}

// DiscoveryDocument is the provider-published OpenID configuration.
type DiscoveryDocument map[string]any

func (d DiscoveryDocument) Endpoint(name string) string {
	return StringValue(d[name])
}

func (d DiscoveryDocument) Issuer() string {
	return d.Endpoint("issuer")
}

func (d DiscoveryDocument) TokenEndpoint() string {
	return d.Endpoint("token_endpoint")
}

func (d DiscoveryDocument) IntrospectionEndpoint() string {
	return d.Endpoint("introspection_endpoint")
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	Scope       string
	ExpiresIn   int64
	Expiry      time.Time
}

func (t TokenResponse) Map() map[string]any {
	out := map[string]any{
		"access_token": t.AccessToken,
	}
	if t.TokenType != "" {
		out["token_type"] = t.TokenType
	}
	if t.Scope != "" {
		out["scope"] = t.Scope
	}
	if t.ExpiresIn > 0 {
		out["expires_in"] = t.ExpiresIn
	}
	if !t.Expiry.IsZero() {
		out["expiry"] = t.Expiry.UTC().Format(time.RFC3339)
	}
	return out
}

// StringValue renders scalar JSON values as trimmed strings and returns ""
// for anything else.
func StringValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}
