package fhirseed

import (
	"context"
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-fhir-seed/adapters/gocommand"
	fhirseedcommand "github.com/goliatone/go-fhir-seed/command"
	"github.com/goliatone/go-fhir-seed/core"
	fhirseedquery "github.com/goliatone/go-fhir-seed/query"
	sqlstore "github.com/goliatone/go-fhir-seed/store/sql"
)

type CommandService interface {
	fhirseedcommand.SeedService
	fhirseedcommand.SandboxService
}

type Commands struct {
	SeedUsers   *fhirseedcommand.SeedUsersCommand
	AuthSandbox *fhirseedcommand.AuthSandboxCommand
}

type Queries struct {
	ListRunOutcomes   *fhirseedquery.ListRunOutcomesQuery
	LatestUserOutcome *fhirseedquery.LatestUserOutcomeQuery
}

// Facade exposes the operator flows as go-command commanders, and the outcome
// ledger as queriers, registered on the process dispatcher.
type Facade struct {
	service       CommandService
	commands      Commands
	queries       Queries
	registry      *gocommand.RegistryAdapter
	subscriptions []commanddispatcher.Subscription
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	registry      *gocommand.RegistryAdapter
	outcomeReader fhirseedquery.OutcomeReader
}

func WithRegistry(registry *gocommand.RegistryAdapter) FacadeOption {
	return func(options *facadeOptions) {
		options.registry = registry
	}
}

// WithOutcomeReader overrides the ledger the queries read from.
func WithOutcomeReader(reader fhirseedquery.OutcomeReader) FacadeOption {
	return func(options *facadeOptions) {
		options.outcomeReader = reader
	}
}

func NewFacade(service CommandService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("fhirseed: command service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	registry := cfg.registry
	if registry == nil {
		registry = gocommand.NewRegistryAdapter(nil)
	}

	reader := cfg.outcomeReader
	if reader == nil {
		reader = resolveOutcomeReader(service)
	}

	facade := &Facade{
		service:  service,
		registry: registry,
		commands: Commands{
			SeedUsers:   fhirseedcommand.NewSeedUsersCommand(service),
			AuthSandbox: fhirseedcommand.NewAuthSandboxCommand(service),
		},
		queries: Queries{
			ListRunOutcomes:   fhirseedquery.NewListRunOutcomesQuery(reader),
			LatestUserOutcome: fhirseedquery.NewLatestUserOutcomeQuery(reader),
		},
	}

	seedSub, err := gocommand.RegisterAndSubscribe[fhirseedcommand.SeedUsersMessage](registry, facade.commands.SeedUsers)
	if err != nil {
		return nil, err
	}
	facade.subscriptions = append(facade.subscriptions, seedSub)

	sandboxSub, err := gocommand.RegisterAndSubscribe[fhirseedcommand.AuthSandboxMessage](registry, facade.commands.AuthSandbox)
	if err != nil {
		facade.Close()
		return nil, err
	}
	facade.subscriptions = append(facade.subscriptions, sandboxSub)

	listSub, err := gocommand.RegisterAndSubscribeQuery[fhirseedquery.ListRunOutcomesMessage, []core.ReconcileOutcome](registry, facade.queries.ListRunOutcomes)
	if err != nil {
		facade.Close()
		return nil, err
	}
	facade.subscriptions = append(facade.subscriptions, listSub)

	latestSub, err := gocommand.RegisterAndSubscribeQuery[fhirseedquery.LatestUserOutcomeMessage, fhirseedquery.UserOutcome](registry, facade.queries.LatestUserOutcome)
	if err != nil {
		facade.Close()
		return nil, err
	}
	facade.subscriptions = append(facade.subscriptions, latestSub)

	if err := registry.Initialize(); err != nil {
		facade.Close()
		return nil, err
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandService {
	if f == nil {
		return nil
	}
	return f.service
}

// SeedUsers dispatches a SeedUsersMessage and returns the stored summary.
func (f *Facade) SeedUsers(ctx context.Context, req SeedUsersRequest) (BatchSummary, error) {
	return gocommand.Execute[fhirseedcommand.SeedUsersMessage, BatchSummary](ctx, fhirseedcommand.SeedUsersMessage{Request: req})
}

// RunSandbox dispatches an AuthSandboxMessage and returns the stored result.
func (f *Facade) RunSandbox(ctx context.Context, req SandboxRequest) (SandboxResult, error) {
	return gocommand.Execute[fhirseedcommand.AuthSandboxMessage, SandboxResult](ctx, fhirseedcommand.AuthSandboxMessage{Request: req})
}

// ListRunOutcomes returns the ledger rows recorded under runID, oldest first.
func (f *Facade) ListRunOutcomes(ctx context.Context, runID string) ([]core.ReconcileOutcome, error) {
	return gocommand.Query[fhirseedquery.ListRunOutcomesMessage, []core.ReconcileOutcome](ctx, fhirseedquery.ListRunOutcomesMessage{RunID: runID})
}

func (f *Facade) LatestUserOutcome(ctx context.Context, username string) (fhirseedquery.UserOutcome, error) {
	return gocommand.Query[fhirseedquery.LatestUserOutcomeMessage, fhirseedquery.UserOutcome](ctx, fhirseedquery.LatestUserOutcomeMessage{Username: username})
}

// Close removes the facade's dispatcher subscriptions.
func (f *Facade) Close() {
	if f == nil {
		return
	}
	for _, subscription := range f.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	f.subscriptions = nil
}

func resolveOutcomeReader(service CommandService) fhirseedquery.OutcomeReader {
	provider, ok := service.(interface {
		Ledger() *sqlstore.Ledger
	})
	if !ok {
		return nil
	}
	store := provider.Ledger().Store()
	if store == nil {
		return nil
	}
	return store
}
