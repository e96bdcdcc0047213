package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-fhir-seed/core"
)

var (
	_ gocmd.Querier[ListRunOutcomesMessage, []core.ReconcileOutcome] = (*ListRunOutcomesQuery)(nil)
	_ gocmd.Querier[LatestUserOutcomeMessage, UserOutcome]           = (*LatestUserOutcomeQuery)(nil)
)
