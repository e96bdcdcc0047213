package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-fhir-seed/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LedgerStore appends one row per reconciled user record.
type LedgerStore struct {
	db   *bun.DB
	repo repository.Repository[*outcomeRecord]
}

func NewLedgerStore(db *bun.DB) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*outcomeRecord](db, outcomeHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid outcome repository wiring: %w", err)
		}
	}
	return &LedgerStore{db: db, repo: repo}, nil
}

func (s *LedgerStore) RecordOutcome(ctx context.Context, outcome core.ReconcileOutcome) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	runID := strings.TrimSpace(outcome.RunID)
	if runID == "" {
		return fmt.Errorf("sqlstore: outcome run id is required")
	}
	createdAt := outcome.RecordedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := outcome.Status
	if status == "" {
		status = core.ReconcileOutcomeOK
	}

	record := &outcomeRecord{
		ID:         uuid.NewString(),
		RunID:      runID,
		Username:   strings.TrimSpace(outcome.Username),
		NodeID:     strings.TrimSpace(outcome.NodeID),
		ModuleID:   strings.TrimSpace(outcome.ModuleID),
		PID:        strings.TrimSpace(outcome.PID),
		Action:     string(outcome.Action),
		Status:     string(status),
		StatusCode: outcome.StatusCode,
		Error:      outcome.Error,
		CreatedAt:  createdAt,
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListByRun returns the outcomes of one run in the order they were recorded.
func (s *LedgerStore) ListByRun(ctx context.Context, runID string) ([]core.ReconcileOutcome, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("run_id", "=", strings.TrimSpace(runID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	outcomes := make([]core.ReconcileOutcome, 0, len(records))
	for _, record := range records {
		outcomes = append(outcomes, outcomeRecordToDomain(record))
	}
	return outcomes, nil
}

// LatestForUser returns the most recent outcome recorded for username.
func (s *LedgerStore) LatestForUser(ctx context.Context, username string) (core.ReconcileOutcome, bool, error) {
	if s == nil || s.repo == nil {
		return core.ReconcileOutcome{}, false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("username", "=", strings.TrimSpace(username)),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.ReconcileOutcome{}, false, err
	}
	if len(records) == 0 {
		return core.ReconcileOutcome{}, false, nil
	}
	return outcomeRecordToDomain(records[0]), true, nil
}

func outcomeRecordToDomain(record *outcomeRecord) core.ReconcileOutcome {
	if record == nil {
		return core.ReconcileOutcome{}
	}
	return core.ReconcileOutcome{
		RunID:      record.RunID,
		Username:   record.Username,
		NodeID:     record.NodeID,
		ModuleID:   record.ModuleID,
		PID:        record.PID,
		Action:     core.ReconcileAction(record.Action),
		Status:     core.ReconcileOutcomeStatus(record.Status),
		StatusCode: record.StatusCode,
		Error:      record.Error,
		RecordedAt: record.CreatedAt.UTC(),
	}
}
