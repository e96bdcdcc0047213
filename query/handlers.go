package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
)

// OutcomeReader reads the reconciliation ledger.
type OutcomeReader interface {
	ListByRun(ctx context.Context, runID string) ([]core.ReconcileOutcome, error)
	LatestForUser(ctx context.Context, username string) (core.ReconcileOutcome, bool, error)
}

type UserOutcome struct {
	Outcome core.ReconcileOutcome
	Found   bool
}

type ListRunOutcomesQuery struct {
	reader OutcomeReader
}

func NewListRunOutcomesQuery(reader OutcomeReader) *ListRunOutcomesQuery {
	return &ListRunOutcomesQuery{reader: reader}
}

func (q *ListRunOutcomesQuery) Query(ctx context.Context, msg ListRunOutcomesMessage) ([]core.ReconcileOutcome, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: outcome reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.ListByRun(ctx, strings.TrimSpace(msg.RunID))
}

type LatestUserOutcomeQuery struct {
	reader OutcomeReader
}

func NewLatestUserOutcomeQuery(reader OutcomeReader) *LatestUserOutcomeQuery {
	return &LatestUserOutcomeQuery{reader: reader}
}

func (q *LatestUserOutcomeQuery) Query(ctx context.Context, msg LatestUserOutcomeMessage) (UserOutcome, error) {
	if q == nil || q.reader == nil {
		return UserOutcome{}, queryDependencyError("query: outcome reader is required")
	}
	if err := msg.Validate(); err != nil {
		return UserOutcome{}, err
	}
	outcome, found, err := q.reader.LatestForUser(ctx, strings.TrimSpace(msg.Username))
	if err != nil {
		return UserOutcome{}, err
	}
	return UserOutcome{Outcome: outcome, Found: found}, nil
}
