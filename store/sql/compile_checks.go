package sqlstore

import "github.com/goliatone/go-fhir-seed/core"

var (
	_ core.OutcomeRecorder = (*LedgerStore)(nil)
	_ core.OutcomeRecorder = (*Ledger)(nil)
)
