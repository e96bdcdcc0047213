package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const defaultPingTimeout = 5 * time.Second

type persistenceConfig struct {
	driver string
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool { return c.debug }

func (c persistenceConfig) GetDriver() string { return c.driver }

func (c persistenceConfig) GetServer() string { return c.server }

func (c persistenceConfig) GetPingTimeout() time.Duration { return defaultPingTimeout }

func (c persistenceConfig) GetOtelIdentifier() string { return "go-fhir-seed-ledger" }

// Ledger is an opened and migrated outcome ledger.
type Ledger struct {
	client *persistence.Client
	store  *LedgerStore
}

// Open connects to the configured database, applies the ledger migrations
// and returns the ready store.
func Open(ctx context.Context, cfg core.LedgerConfig) (*Ledger, error) {
	driver := strings.TrimSpace(cfg.Driver)
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("sqlstore: ledger dsn is required")
	}
	dialectName, err := migrations.DialectForDriver(driver)
	if err != nil {
		return nil, err
	}

	var dialect schema.Dialect
	switch dialectName {
	case migrations.DialectSQLite:
		dialect = sqlitedialect.New()
	default:
		dialect = pgdialect.New()
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	if dialectName == migrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{driver: driver, server: dsn}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	return openWithClient(ctx, client, dialectName)
}

func openWithClient(ctx context.Context, client *persistence.Client, dialect string) (*Ledger, error) {
	if _, err := migrations.Register(ctx, dialect, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate ledger: %w", err)
	}

	store, err := NewLedgerStore(client.DB())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Ledger{client: client, store: store}, nil
}

func (l *Ledger) Store() *LedgerStore {
	if l == nil {
		return nil
	}
	return l.store
}

func (l *Ledger) RecordOutcome(ctx context.Context, outcome core.ReconcileOutcome) error {
	return l.Store().RecordOutcome(ctx, outcome)
}

func (l *Ledger) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
