package consent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

var actions = []Action{ActionRead, ActionWrite, ActionDelete}

// StudyPermissions is the decoded consent document. Values are kept as
// decoded so that any truthy JSON value counts as a grant.
type StudyPermissions struct {
	All     map[string]any `json:"all,omitempty"`
	Studies map[string]any `json:"studies,omitempty"`
}

// AllowedStudies is the evaluation of StudyPermissions for one action. Studies
// is nil when access was granted (or refused) for every study at once.
type AllowedStudies struct {
	All     map[Action]bool
	Studies []string
}

func Parse(notes string) (StudyPermissions, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(notes)))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return StudyPermissions{}, malformedError(notes, err)
	}
	mapping, ok := raw.(map[string]any)
	if !ok {
		return StudyPermissions{}, malformedError(notes, nil)
	}
	return FromMapping(mapping)
}

func FromMapping(mapping map[string]any) (StudyPermissions, error) {
	if mapping == nil {
		return StudyPermissions{}, malformedError(mapping, nil)
	}
	perms := StudyPermissions{}
	if value, ok := mapping["all"]; ok && value != nil {
		all, ok := value.(map[string]any)
		if !ok {
			return StudyPermissions{}, malformedError(mapping, nil)
		}
		perms.All = all
	}
	if value, ok := mapping["studies"]; ok && value != nil {
		studies, ok := value.(map[string]any)
		if !ok {
			return StudyPermissions{}, malformedError(mapping, nil)
		}
		perms.Studies = studies
	}
	return perms, nil
}

// Validate reports documents that can never grant anything.
func (p StudyPermissions) Validate() error {
	if p.All == nil && len(p.Studies) == 0 {
		return malformedError(p, nil)
	}
	return nil
}

// AllowedStudiesForAction evaluates perms for action. A blanket "all" section
// takes precedence over per-study grants. malformed is true when the document
// grants nothing for action in a shape the evaluator recognizes.
func AllowedStudiesForAction(perms StudyPermissions, action Action) (AllowedStudies, bool) {
	result := AllowedStudies{All: map[Action]bool{}}
	for _, known := range actions {
		result.All[known] = false
	}

	if perms.All != nil {
		if truthy(perms.All[string(action)]) {
			result.All[action] = true
			return result, false
		}
		return result, true
	}
	if len(perms.Studies) == 0 {
		return result, true
	}

	studies := make([]string, 0, len(perms.Studies))
	for studyID, value := range perms.Studies {
		flags, ok := value.(map[string]any)
		if !ok {
			continue
		}
		if truthy(flags[string(action)]) {
			studies = append(studies, studyID)
		}
	}
	sort.Strings(studies)
	result.Studies = studies
	return result, false
}

// ActionForMethod maps an HTTP method onto the permission it requires.
func ActionForMethod(method string) (Action, bool) {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet:
		return ActionRead, true
	case http.MethodPost, http.MethodPut:
		return ActionWrite, true
	case http.MethodDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}

func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case json.Number:
		return typed.String() != "0" && typed.String() != ""
	case float64:
		return typed != 0
	case int:
		return typed != 0
	default:
		return true
	}
}

func malformedError(value any, cause error) error {
	encoded, _ := json.Marshal(value)
	message := fmt.Sprintf("consent: unrecognized study permissions %s", string(encoded))
	if text, ok := value.(string); ok {
		message = fmt.Sprintf("consent: unrecognized study permissions %q", text)
	}
	err := core.BadInputError(message, nil)
	if cause != nil {
		err.WithMetadata(map[string]any{"cause": cause.Error()})
	}
	return err
}
