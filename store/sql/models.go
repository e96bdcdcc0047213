package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type outcomeRecord struct {
	bun.BaseModel `bun:"table:seed_reconcile_outcomes,alias:sro"`

	ID         string    `bun:"id,pk"`
	RunID      string    `bun:"run_id,notnull"`
	Username   string    `bun:"username,notnull"`
	NodeID     string    `bun:"node_id,notnull"`
	ModuleID   string    `bun:"module_id,notnull"`
	PID        string    `bun:"pid,notnull"`
	Action     string    `bun:"action,notnull"`
	Status     string    `bun:"status,notnull"`
	StatusCode int       `bun:"status_code,notnull"`
	Error      string    `bun:"error,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
