package fhirseed

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/auth"
	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/fhir"
	"github.com/goliatone/go-fhir-seed/reconcile"
	sqlstore "github.com/goliatone/go-fhir-seed/store/sql"
	"github.com/goliatone/go-fhir-seed/transport"
	glog "github.com/goliatone/go-logger/glog"
)

const defaultHTTPTimeout = 30 * time.Second

// Service wires both operator flows against one loaded Config. It owns the
// shared HTTP client and, when configured, the outcome ledger.
type Service struct {
	cfg       Config
	logger    core.Logger
	observer  *core.Observer
	transport core.TransportAdapter
	tokens    *auth.TokenClient
	resources *fhir.Client
	recorder  core.OutcomeRecorder
	detector  reconcile.CollisionDetector
	ledger    *sqlstore.Ledger
}

type Option func(*serviceOptions)

type serviceOptions struct {
	logger         core.Logger
	loggerProvider core.LoggerProvider
	httpClient     *http.Client
	transport      core.TransportAdapter
	metrics        core.MetricsRecorder
	recorder       core.OutcomeRecorder
	detector       reconcile.CollisionDetector
}

func WithLogger(logger core.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *serviceOptions) { o.loggerProvider = provider }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *serviceOptions) { o.httpClient = client }
}

// WithTransport replaces the REST adapter used for every plain HTTP call.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(o *serviceOptions) { o.transport = adapter }
}

func WithMetricsRecorder(metrics core.MetricsRecorder) Option {
	return func(o *serviceOptions) { o.metrics = metrics }
}

// WithOutcomeRecorder overrides the ledger opened from Config.Ledger.
func WithOutcomeRecorder(recorder core.OutcomeRecorder) Option {
	return func(o *serviceOptions) { o.recorder = recorder }
}

func WithCollisionDetector(detector reconcile.CollisionDetector) Option {
	return func(o *serviceOptions) { o.detector = detector }
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := serviceOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	_, logger := glog.Resolve(cfg.ServiceName, options.loggerProvider, options.logger)
	observer := core.NewObserver(cfg.ServiceName, logger, options.metrics)

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	adapter := options.transport
	if adapter == nil {
		adapter = transport.NewRESTAdapter(httpClient)
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		observer:  observer,
		transport: adapter,
		tokens: auth.NewTokenClient(
			auth.WithHTTPClient(httpClient),
			auth.WithTransport(adapter),
			auth.WithObserver(observer),
		),
		resources: fhir.NewClient(adapter, observer),
		recorder:  options.recorder,
		detector:  options.detector,
	}

	if svc.recorder == nil && cfg.Ledger.Enabled() {
		ledger, err := sqlstore.Open(ctx, cfg.Ledger)
		if err != nil {
			return nil, err
		}
		svc.ledger = ledger
		svc.recorder = ledger
		logger.Debug("outcome ledger opened", "driver", cfg.Ledger.Driver)
	}
	return svc, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.cfg
}

// Ledger returns the SQL ledger opened from Config.Ledger, or nil.
func (s *Service) Ledger() *sqlstore.Ledger {
	if s == nil {
		return nil
	}
	return s.ledger
}

// SeedUsers reconciles the batch file against the user-management API. An
// empty FilePath falls back to Config.SeedUsersFilePath.
func (s *Service) SeedUsers(ctx context.Context, req SeedUsersRequest) (BatchSummary, error) {
	if s == nil {
		return BatchSummary{}, core.BadInputError("fhirseed: service is not configured", nil)
	}
	if err := s.cfg.ValidateForSeeding(); err != nil {
		return BatchSummary{}, err
	}
	path := strings.TrimSpace(req.FilePath)
	if path == "" {
		path = s.cfg.SeedUsersFilePath
	}

	opts := []reconcile.Option{
		reconcile.WithTransport(s.transport),
		reconcile.WithObserver(s.observer),
	}
	if s.detector != nil {
		opts = append(opts, reconcile.WithCollisionDetector(s.detector))
	}
	if s.recorder != nil {
		opts = append(opts, reconcile.WithOutcomeRecorder(s.recorder))
	}
	reconciler, err := reconcile.NewReconciler(
		s.cfg.UserManagementEndpoint,
		core.BasicCredentials{Username: req.ClientID, Password: req.ClientSecret},
		opts...,
	)
	if err != nil {
		return BatchSummary{}, err
	}
	return reconcile.NewSeeder(reconciler, s.observer).SeedUsers(ctx, path)
}

// RunSandbox acquires a token and uses it on {fhir}/{resourceType}. Empty
// request fields fall back to the loaded Config.
func (s *Service) RunSandbox(ctx context.Context, req SandboxRequest) (SandboxResult, error) {
	if s == nil {
		return SandboxResult{}, core.BadInputError("fhirseed: service is not configured", nil)
	}
	req = s.sandboxDefaults(req)
	effective := s.cfg
	effective.Identity.Domain = req.Domain
	effective.FHIREndpoint = req.FHIREndpoint
	if err := effective.ValidateForSandbox(req.Alternate); err != nil {
		return SandboxResult{}, err
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		return SandboxResult{}, core.BadInputError("fhirseed: client id and secret are required (IDENTITY_CLIENT_ID, IDENTITY_CLIENT_SECRET)", nil)
	}
	if req.Alternate && req.Introspect {
		return SandboxResult{}, core.BadInputError("fhirseed: introspection needs the discovery flow", nil)
	}

	result := SandboxResult{}
	if req.Alternate {
		accessToken, err := s.tokens.AcquireTokenAlternate(ctx, req.FHIREndpoint, req.ClientID, req.ClientSecret)
		if err != nil {
			return result, err
		}
		result.Token = core.TokenResponse{AccessToken: accessToken}
	} else {
		doc, err := s.tokens.FetchDiscoveryDocument(ctx, req.Domain)
		if err != nil {
			return result, err
		}
		result.Discovery = doc
		s.logger.Debug("discovery document fetched", "issuer", doc.Issuer(), "token_endpoint", doc.TokenEndpoint())

		token, err := s.tokens.AcquireToken(ctx, auth.TokenRequest{
			TokenEndpoint: doc.TokenEndpoint(),
			ClientID:      req.ClientID,
			ClientSecret:  req.ClientSecret,
			Audience:      req.Audience,
		})
		if err != nil {
			return result, err
		}
		result.Token = token
	}

	if req.Introspect {
		claims, err := s.tokens.IntrospectToken(ctx, auth.IntrospectionRequest{
			Endpoint:     result.Discovery.IntrospectionEndpoint(),
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
			Token:        result.Token.AccessToken,
		})
		if err != nil {
			return result, err
		}
		result.Introspection = claims
	}

	result.ResourceURL = fhir.ResourceURL(req.FHIREndpoint, req.ResourceType)
	resource, err := s.resources.Get(ctx, result.ResourceURL, result.Token.AccessToken)
	if err != nil {
		return result, err
	}
	result.Resource = resource
	return result, nil
}

func (s *Service) sandboxDefaults(req SandboxRequest) SandboxRequest {
	req.Domain = firstNonEmpty(req.Domain, s.cfg.Identity.Domain)
	req.ClientID = firstNonEmpty(req.ClientID, s.cfg.Identity.ClientID)
	req.ClientSecret = firstNonEmpty(req.ClientSecret, s.cfg.Identity.ClientSecret)
	req.Audience = firstNonEmpty(req.Audience, s.cfg.Identity.Audience)
	req.FHIREndpoint = firstNonEmpty(req.FHIREndpoint, s.cfg.FHIREndpoint)
	req.ResourceType = firstNonEmpty(req.ResourceType, core.DefaultSandboxResource)
	return req
}

// Close releases the ledger connection, if one was opened.
func (s *Service) Close() error {
	if s == nil || s.ledger == nil {
		return nil
	}
	return s.ledger.Close()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
