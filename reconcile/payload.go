package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
)

type routing struct {
	nodeID   string
	moduleID string
}

// preparedUser splits a record into its routing ids, the payload to send and
// the record to keep locally.
type preparedUser struct {
	routing routing
	local   core.UserRecord
	payload map[string]any
	consent map[string]any
}

func prepareUser(user core.UserRecord) (preparedUser, error) {
	username := user.Username()
	nodeID := core.StringValue(user[core.FieldNodeID])
	moduleID := core.StringValue(user[core.FieldModuleID])
	if nodeID == "" || moduleID == "" {
		return preparedUser{}, core.BadInputError(
			fmt.Sprintf("reconcile: user %q is missing %s or %s", username, core.FieldNodeID, core.FieldModuleID),
			map[string]any{"username": username},
		)
	}

	local := user.Clone()
	payload := map[string]any(user.Clone())
	delete(payload, core.FieldNodeID)
	delete(payload, core.FieldModuleID)

	prepared := preparedUser{
		routing: routing{nodeID: nodeID, moduleID: moduleID},
		local:   local,
		payload: payload,
	}

	if raw, ok := payload[core.FieldConsent]; ok {
		delete(payload, core.FieldConsent)
		if consent, ok := raw.(map[string]any); ok && len(consent) > 0 {
			notes, err := encodeNotes(consent)
			if err != nil {
				return preparedUser{}, core.BadInputError(
					fmt.Sprintf("reconcile: encode consent for user %q: %v", username, err),
					map[string]any{"username": username},
				)
			}
			payload[core.FieldNotes] = notes
			local[core.FieldNotes] = notes
			prepared.consent = consent
		}
	}
	return prepared, nil
}

func encodeNotes(consent map[string]any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(consent); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func updatePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		if key == core.FieldPID {
			continue
		}
		out[key] = value
	}
	return out
}

// decodeServerFields reads the JSON object a create or update call returned.
// Bodies that are empty or not an object contribute nothing.
func decodeServerFields(body []byte) (map[string]any, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, true
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, false
	}
	return fields, true
}
