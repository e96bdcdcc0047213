package query

import "strings"

const (
	TypeListRunOutcomes   = "fhirseed.query.outcomes.list_by_run"
	TypeLatestUserOutcome = "fhirseed.query.outcomes.latest_for_user"
)

type ListRunOutcomesMessage struct {
	RunID string
}

func (ListRunOutcomesMessage) Type() string { return TypeListRunOutcomes }

func (m ListRunOutcomesMessage) Validate() error {
	if strings.TrimSpace(m.RunID) == "" {
		return queryValidationError("run_id", "run id is required")
	}
	return nil
}

type LatestUserOutcomeMessage struct {
	Username string
}

func (LatestUserOutcomeMessage) Type() string { return TypeLatestUserOutcome }

func (m LatestUserOutcomeMessage) Validate() error {
	if strings.TrimSpace(m.Username) == "" {
		return queryValidationError("username", "username is required")
	}
	return nil
}
