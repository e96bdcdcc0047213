package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-fhir-seed/consent"
	"github.com/goliatone/go-fhir-seed/core"
	"github.com/goliatone/go-fhir-seed/transport"
	"github.com/google/uuid"
)

// Reconciler creates or updates user records one at a time.
type Reconciler struct {
	endpoint    string
	credentials core.BasicCredentials
	transport   core.TransportAdapter
	observer    *core.Observer
	collisions  CollisionDetector
	recorder    core.OutcomeRecorder
	newRunID    func() string
	now         func() time.Time
}

type Option func(*Reconciler)

func WithTransport(adapter core.TransportAdapter) Option {
	return func(r *Reconciler) {
		if adapter != nil {
			r.transport = adapter
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(r *Reconciler) {
		r.observer = observer
	}
}

func WithCollisionDetector(detector CollisionDetector) Option {
	return func(r *Reconciler) {
		if detector != nil {
			r.collisions = detector
		}
	}
}

func WithOutcomeRecorder(recorder core.OutcomeRecorder) Option {
	return func(r *Reconciler) {
		if recorder != nil {
			r.recorder = recorder
		}
	}
}

func WithRunIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newRunID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReconciler targets endpoint, the user-management base URL, and
// authenticates every call with credentials.
func NewReconciler(endpoint string, credentials core.BasicCredentials, opts ...Option) (*Reconciler, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, core.BadInputError("reconcile: user management endpoint is required", nil)
	}
	r := &Reconciler{
		endpoint:    endpoint,
		credentials: credentials,
		collisions:  DefaultCollisionDetector(),
		recorder:    core.NopOutcomeRecorder{},
		newRunID:    uuid.NewString,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.transport == nil {
		r.transport = transport.NewRESTAdapter(nil)
	}
	return r, nil
}

// ReconcileUser creates user, or updates it by pid when the username is
// already taken. The returned record carries the server fields merged over
// the local ones, with the routing ids restored.
func (r *Reconciler) ReconcileUser(ctx context.Context, user core.UserRecord) (result core.ReconciledUser, err error) {
	startedAt := time.Now()
	username := user.Username()
	fields := map[string]any{"username": username}
	defer func() {
		if result.Action != "" {
			fields["action"] = string(result.Action)
		}
		if result.PID != "" {
			fields["pid"] = result.PID
		}
		r.observer.ObserveOperation(ctx, startedAt, "reconcile_user", err, fields)
	}()

	prepared, err := prepareUser(user)
	if err != nil {
		return core.ReconciledUser{}, err
	}
	fields["node_id"] = prepared.routing.nodeID
	fields["module_id"] = prepared.routing.moduleID
	r.checkConsent(ctx, username, prepared.consent)

	collectionURL := transport.JoinURL(r.endpoint, prepared.routing.nodeID, prepared.routing.moduleID)
	createReq, err := r.request(http.MethodPost, collectionURL, prepared.payload)
	if err != nil {
		return core.ReconciledUser{}, err
	}
	createRes, err := r.transport.Do(ctx, createReq)
	if err != nil {
		return core.ReconciledUser{}, operationFailure(core.KindCreation, createReq, username, core.TransportResponse{}, err)
	}

	action := core.ReconcileActionCreated
	final := createRes
	if !createRes.Successful() {
		if !r.collisions.IsCollision(createRes) {
			return core.ReconciledUser{}, operationFailure(core.KindCreation, createReq, username, createRes, nil)
		}
		pid, ok := prepared.local.PID()
		if !ok {
			failure := operationFailure(core.KindMissingIdentifier, createReq, username, createRes, nil)
			failure.Message = "username already exists and the record has no pid"
			return core.ReconciledUser{}, failure
		}
		r.observer.Debug(ctx, "user already exists, updating", map[string]any{"username": username, "pid": pid})

		updateReq, err := r.request(http.MethodPut, transport.JoinURL(collectionURL, pid), updatePayload(prepared.payload))
		if err != nil {
			return core.ReconciledUser{}, err
		}
		updateRes, err := r.transport.Do(ctx, updateReq)
		if err != nil {
			return core.ReconciledUser{}, operationFailure(core.KindUpdate, updateReq, username, core.TransportResponse{}, err)
		}
		if !updateRes.Successful() {
			return core.ReconciledUser{}, operationFailure(core.KindUpdate, updateReq, username, updateRes, nil)
		}
		action = core.ReconcileActionUpdated
		final = updateRes
	}

	record := prepared.local
	localPID, hadPID := record.PID()
	if serverFields, ok := decodeServerFields(final.Body); ok {
		record.Merge(serverFields)
	} else {
		r.observer.Warn(ctx, "response body is not a json object, keeping local fields", map[string]any{
			"username":    username,
			"status_code": final.StatusCode,
		})
	}
	if _, ok := record.PID(); !ok && hadPID {
		record[core.FieldPID] = localPID
	}
	record[core.FieldNodeID] = prepared.routing.nodeID
	record[core.FieldModuleID] = prepared.routing.moduleID

	pid, _ := record.PID()
	return core.ReconciledUser{
		Record:     record,
		Action:     action,
		PID:        pid,
		StatusCode: final.StatusCode,
	}, nil
}

// ReconcileBatch reconciles every record in order and stops at the first
// failure. The returned batch holds the reconciled records in place of their
// inputs; records after a failure are left untouched.
func (r *Reconciler) ReconcileBatch(ctx context.Context, batch core.ReconciliationBatch) (core.ReconciliationBatch, core.BatchSummary, error) {
	summary := core.BatchSummary{RunID: r.newRunID(), Total: len(batch)}
	if err := batch.Validate(); err != nil {
		return batch, summary, err
	}

	out := make(core.ReconciliationBatch, len(batch))
	copy(out, batch)
	for index, user := range batch {
		reconciled, err := r.ReconcileUser(ctx, user)
		r.recordOutcome(ctx, summary.RunID, user, reconciled, err)
		if err != nil {
			return out, summary, fmt.Errorf("reconcile: record %d: %w", index, err)
		}
		out[index] = reconciled.Record
		summary.Processed++
		switch reconciled.Action {
		case core.ReconcileActionCreated:
			summary.Created++
			r.observer.Info(ctx, fmt.Sprintf("Created user %s", user.Username()), map[string]any{
				"username": user.Username(),
				"pid":      reconciled.PID,
			})
		case core.ReconcileActionUpdated:
			summary.Updated++
			r.observer.Info(ctx, fmt.Sprintf("Updated user %s with pid %s", user.Username(), reconciled.PID), map[string]any{
				"username": user.Username(),
				"pid":      reconciled.PID,
			})
		}
	}
	return out, summary, nil
}

func (r *Reconciler) request(method string, url string, payload map[string]any) (core.TransportRequest, error) {
	req, err := transport.JSONRequest(method, url, payload)
	if err != nil {
		return core.TransportRequest{}, err
	}
	credentials := r.credentials
	req.BasicAuth = &credentials
	return req, nil
}

func (r *Reconciler) checkConsent(ctx context.Context, username string, mapping map[string]any) {
	if mapping == nil {
		return
	}
	perms, err := consent.FromMapping(mapping)
	if err == nil {
		err = perms.Validate()
	}
	if err != nil {
		r.observer.Warn(ctx, "consent grants nothing the consent service recognizes", map[string]any{
			"username": username,
			"error":    err.Error(),
		})
	}
}

func (r *Reconciler) recordOutcome(
	ctx context.Context,
	runID string,
	user core.UserRecord,
	reconciled core.ReconciledUser,
	reconcileErr error,
) {
	outcome := core.ReconcileOutcome{
		RunID:      runID,
		Username:   user.Username(),
		NodeID:     core.StringValue(user[core.FieldNodeID]),
		ModuleID:   core.StringValue(user[core.FieldModuleID]),
		PID:        reconciled.PID,
		Action:     reconciled.Action,
		Status:     core.ReconcileOutcomeOK,
		StatusCode: reconciled.StatusCode,
		RecordedAt: r.now(),
	}
	if reconcileErr != nil {
		outcome.Action = core.ReconcileActionFailed
		outcome.Status = core.ReconcileOutcomeError
		outcome.Error = reconcileErr.Error()
		if pid, ok := user.PID(); ok {
			outcome.PID = pid
		}
		var opErr *core.OperationError
		if errors.As(reconcileErr, &opErr) {
			outcome.StatusCode = opErr.StatusCode
		}
	}
	if err := r.recorder.RecordOutcome(ctx, outcome); err != nil {
		r.observer.Warn(ctx, "failed to record reconcile outcome", map[string]any{
			"run_id":   runID,
			"username": outcome.Username,
			"error":    err.Error(),
		})
	}
}

func operationFailure(
	kind core.ErrorKind,
	req core.TransportRequest,
	username string,
	res core.TransportResponse,
	cause error,
) *core.OperationError {
	return &core.OperationError{
		Kind:       kind,
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: res.StatusCode,
		Body:       strings.TrimSpace(string(res.Body)),
		Username:   username,
		Cause:      cause,
	}
}
