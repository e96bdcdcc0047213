package consent

import (
	"fmt"
	"strings"
)

const StudyTagSystem = "urn:study_id"

const (
	RoleSuperuser    = "ROLE_SUPERUSER"
	RoleFHIRAllRead  = "FHIR_ALL_READ"
	RoleFHIRAllWrite = "FHIR_ALL_WRITE"
)

type Outcome string

const (
	OutcomeAuthorized Outcome = "authorized"
	OutcomeProceed    Outcome = "proceed"
	OutcomeReject     Outcome = "reject"
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAuthorized || d.Outcome == OutcomeProceed
}

type Tag struct {
	System string
	Code   string
}

// StartOperation decides whether a session may enter the consent pipeline.
// Superusers skip it entirely; the FHIR_ALL_* roles continue to the per
// resource check.
func StartOperation(authorities []string) Decision {
	granted := map[string]struct{}{}
	for _, authority := range authorities {
		granted[strings.TrimSpace(authority)] = struct{}{}
	}
	if _, ok := granted[RoleSuperuser]; ok {
		return Decision{Outcome: OutcomeAuthorized, Reason: "superuser"}
	}
	for _, role := range []string{RoleFHIRAllRead, RoleFHIRAllWrite} {
		if _, ok := granted[role]; ok {
			return Decision{Outcome: OutcomeProceed, Reason: role}
		}
	}
	return Decision{Outcome: OutcomeReject, Reason: "no role allows consent authorization"}
}

// CanSeeResource decides whether the holder of notes may perform method on a
// resource carrying tags. Every urn:study_id tag must name an allowed study.
func CanSeeResource(notes string, method string, tags []Tag) Decision {
	action, ok := ActionForMethod(method)
	if !ok {
		return Decision{Outcome: OutcomeReject, Reason: fmt.Sprintf("unrecognized http operation %q", method)}
	}
	perms, err := Parse(notes)
	if err != nil {
		return Decision{Outcome: OutcomeReject, Reason: "notes hold malformed consent json"}
	}

	allowed, malformed := AllowedStudiesForAction(perms, action)
	if allowed.All[action] {
		return Decision{Outcome: OutcomeAuthorized, Reason: fmt.Sprintf("may %s all studies", action)}
	}
	if malformed || len(allowed.Studies) == 0 {
		return Decision{Outcome: OutcomeReject, Reason: "no studies allowed"}
	}

	studies := make(map[string]struct{}, len(allowed.Studies))
	for _, study := range allowed.Studies {
		studies[study] = struct{}{}
	}
	for _, tag := range tags {
		if tag.System != StudyTagSystem {
			continue
		}
		if _, ok := studies[tag.Code]; !ok {
			return Decision{Outcome: OutcomeReject, Reason: fmt.Sprintf("study %q not allowed", tag.Code)}
		}
	}
	return Decision{Outcome: OutcomeAuthorized, Reason: fmt.Sprintf("may %s studies %s", action, strings.Join(allowed.Studies, ","))}
}

// ResourceTags reads meta.tag from a decoded FHIR resource.
func ResourceTags(resource map[string]any) []Tag {
	meta, _ := resource["meta"].(map[string]any)
	items, _ := meta["tag"].([]any)
	tags := make([]Tag, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		system, _ := entry["system"].(string)
		code, _ := entry["code"].(string)
		tags = append(tags, Tag{System: system, Code: code})
	}
	return tags
}
