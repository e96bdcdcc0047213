package reconcile

import (
	"context"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	filestore "github.com/goliatone/go-fhir-seed/store/file"
)

// Seeder runs a reconciliation over a batch file and writes the result back.
type Seeder struct {
	reconciler *Reconciler
	observer   *core.Observer
}

func NewSeeder(reconciler *Reconciler, observer *core.Observer) *Seeder {
	return &Seeder{reconciler: reconciler, observer: observer}
}

// SeedUsers loads path, reconciles every record and rewrites path. The file
// is only written when the whole batch succeeded.
func (s *Seeder) SeedUsers(ctx context.Context, path string) (summary core.BatchSummary, err error) {
	if s == nil || s.reconciler == nil {
		return core.BatchSummary{}, core.BadInputError("reconcile: seeder requires a reconciler", nil)
	}
	startedAt := time.Now()
	defer func() {
		s.observer.ObserveOperation(ctx, startedAt, "seed_users", err, map[string]any{
			"path":    path,
			"run_id":  summary.RunID,
			"total":   summary.Total,
			"created": summary.Created,
			"updated": summary.Updated,
		})
	}()

	file := filestore.New(path)
	batch, err := file.Load()
	if err != nil {
		return core.BatchSummary{}, err
	}
	reconciled, summary, err := s.reconciler.ReconcileBatch(ctx, batch)
	if err != nil {
		return summary, err
	}
	if err := file.Save(reconciled); err != nil {
		return summary, err
	}
	return summary, nil
}
