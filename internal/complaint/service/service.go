// Package service orchestrates the complaint workflow: registration,
// action submission through the engine, advisory catalogs, and the ledger
// and appeal read paths. Handlers stay thin; every rule lives here or below.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/appeals"
	"disciplina/internal/complaint/catalog"
	"disciplina/internal/complaint/classification"
	"disciplina/internal/complaint/engine"
	"disciplina/internal/complaint/metrics"
	"disciplina/internal/complaint/models"
	"disciplina/internal/complaint/store"
	"disciplina/internal/directory"
	"disciplina/internal/notification"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
	"disciplina/pkg/platform/sentinel"
	"disciplina/pkg/requestcontext"
)

// Service drives the complaint workflow.
type Service struct {
	store          store.Store
	engine         *engine.Engine
	catalog        *catalog.Catalog
	committees     directory.CommitteeDirectory
	employees      directory.EmployeeDirectory
	notifier       notification.Notifier
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	rebuttalWindow time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithRebuttalWindow fills in a rebuttal deadline for notification
// submissions that omit one. Zero disables the default and the engine
// rejects deadline-less notifications as before.
func WithRebuttalWindow(window time.Duration) Option {
	return func(s *Service) { s.rebuttalWindow = window }
}

// New constructs a Service.
func New(st store.Store, committees directory.CommitteeDirectory, employees directory.EmployeeDirectory, opts ...Option) *Service {
	s := &Service{
		store:      st,
		engine:     engine.New(),
		committees: committees,
		employees:  employees,
		notifier:   notification.Noop{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("disciplina/complaint"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.New(s.engine, nil, s.logger)
	}
	return s
}

// Register opens a new case in the initial review state and writes ledger
// entry 1 atomically with it.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*models.Case, error) {
	if requestcontext.ActorID(ctx).IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "registering actor is unknown")
	}
	exists, err := s.employees.EmployeeExists(ctx, in.AccusedEmployeeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "employee lookup failed")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "accused employee is unknown").
			WithFields("accused_employee_id")
	}

	actorID := requestcontext.ActorID(ctx)
	requestID := requestcontext.RequestID(ctx)
	now := requestcontext.Now(ctx)
	authority := classification.Classify(in.Article, false, in.CenterID).DecisionAuthority

	created, err := s.store.Register(ctx, in.TenantID, func(seq int64) (*models.Case, audit.Entry, error) {
		c, err := models.NewCase(id.NewCaseID(), in, seq, now, authority)
		if err != nil {
			return nil, audit.Entry{}, err
		}
		return c, audit.Registration(c, actorID, requestID), nil
	})
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register case")
	}

	s.metrics.IncrementRegistration(string(created.Article))
	s.logger.Info("case registered",
		"case_id", created.ID, "case_number", created.CaseNumber,
		"article", created.Article, "authority", created.DecisionAuthority)
	s.emit(created, models.ActionRegisterComplaint, "", created.Status, actorID, 1, now)

	return created, nil
}

// SubmitAction validates one action against the case's current state and
// applies it. The status change, the ledger entry, and any appeal row
// commit atomically; concurrent submissions on the same case fail fast
// with a conflict.
func (s *Service) SubmitAction(ctx context.Context, caseID id.CaseID, action models.Action, payload models.Payload) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "complaint.SubmitAction",
		trace.WithAttributes(
			attribute.String("case.id", caseID.String()),
			attribute.String("case.action", string(action)),
		))
	defer span.End()
	start := time.Now()

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "submitting actor is unknown")
	}
	requestID := requestcontext.RequestID(ctx)
	now := requestcontext.Now(ctx)

	if action == models.ActionSendNotification && s.rebuttalWindow > 0 {
		if _, ok := payload["rebuttal_deadline"]; !ok {
			// Default on a copy; the caller's map stays untouched.
			defaulted := make(models.Payload, len(payload)+1)
			for k, v := range payload {
				defaulted[k] = v
			}
			defaulted["rebuttal_deadline"] = now.Add(s.rebuttalWindow).Format(time.RFC3339)
			payload = defaulted
		}
	}

	var result engine.Result
	updated, err := s.store.Transition(ctx, caseID, func(txn *store.Txn) error {
		ec := &engine.Context{
			Case:             txn.Case,
			Classification:   classification.ClassifyCase(txn.Case),
			OpenAppeal:       txn.OpenAppeal,
			ActorID:          actorID,
			Payload:          payload,
			Now:              now,
			ResolveCommittee: s.resolveCommittee(ctx),
		}

		var applyErr error
		result, applyErr = s.engine.Apply(ec, action)
		if applyErr != nil {
			return applyErr
		}

		switch action {
		case models.ActionSubmitAppeal:
			in, err := appeals.ParseSubmitPayload(payload)
			if err != nil {
				return err
			}
			txn.InsertAppeal(appeals.NewAppeal(caseID, in, now))
		case models.ActionRecordAppealDecision:
			txn.SaveAppeal(txn.OpenAppeal)
		}

		txn.Record(audit.Transition(caseID, txn.NextSeq(), action, actorID,
			result.Prior, result.New, result.AuditPayload, requestID, now))
		return nil
	})
	if err != nil {
		s.metrics.IncrementTransition(string(action), transitionResult(err))
		return nil, s.mapTransitionErr(err, caseID, action)
	}

	s.metrics.IncrementTransition(string(action), "accepted")
	s.metrics.ObserveSubmitLatency(time.Since(start))
	s.catalog.Invalidate(ctx, caseID, updated.Version-1)
	s.logger.Info("case transition accepted",
		"case_id", caseID, "action", action,
		"prior_status", result.Prior, "new_status", result.New, "version", updated.Version)
	s.emit(updated, action, result.Prior, result.New, actorID, int64(updated.Version), now)

	return updated, nil
}

// AvailableActions returns the advisory action list for a case.
func (s *Service) AvailableActions(ctx context.Context, caseID id.CaseID) ([]catalog.ActionDescriptor, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	open, err := s.store.OpenAppeal(ctx, caseID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load open appeal")
	}
	ec := &engine.Context{
		Case:           c,
		Classification: classification.ClassifyCase(c),
		OpenAppeal:     open,
		Now:            requestcontext.Now(ctx),
	}
	return s.catalog.For(ctx, ec), nil
}

func (s *Service) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}

// AuditTrail returns the case ledger in sequence order.
func (s *Service) AuditTrail(ctx context.Context, caseID id.CaseID) ([]audit.Entry, error) {
	entries, err := s.store.ListAudit(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return entries, nil
}

// Appeals returns the case's appeal sub-ledger, oldest first.
func (s *Service) Appeals(ctx context.Context, caseID id.CaseID) ([]models.Appeal, error) {
	rows, err := s.store.ListAppeals(ctx, caseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load appeals")
	}
	return rows, nil
}

// ListRebuttalDue returns cases whose rebuttal deadline is at or before the
// cutoff. The external scheduler sweeps it and submits the deadline action
// per case.
func (s *Service) ListRebuttalDue(ctx context.Context, before time.Time) ([]models.Case, error) {
	due, err := s.store.ListRebuttalDue(ctx, before)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due cases")
	}
	return due, nil
}

// resolveCommittee adapts the directory into the engine's resolver shape.
func (s *Service) resolveCommittee(ctx context.Context) engine.CommitteeResolver {
	return func(committeeID id.CommitteeID) (*id.CenterID, error) {
		committee, err := s.committees.FindCommittee(ctx, committeeID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeInvalidPayload, "committee is unknown or inactive").
					WithFields("committee_id")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "committee lookup failed")
		}
		return committee.CenterID, nil
	}
}

func (s *Service) mapTransitionErr(err error, caseID id.CaseID, action models.Action) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrLocked), errors.Is(err, sentinel.ErrVersionMismatch):
		s.metrics.IncrementLockContention()
		s.logger.Warn("case transition contended", "case_id", caseID, "action", action)
		return dErrors.New(dErrors.CodeConcurrentModification,
			"another action is being applied to this case; retry")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to apply action")
}

func transitionResult(err error) string {
	if errors.Is(err, sentinel.ErrLocked) || errors.Is(err, sentinel.ErrVersionMismatch) {
		return "contended"
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeIllegalTransition:
		return "illegal"
	case dErrors.CodeGuardFailed:
		return "guard_failed"
	case dErrors.CodeInvalidPayload, dErrors.CodeInvalidInput:
		return "invalid_payload"
	}
	return "error"
}

// emit publishes the transition event without holding up the response.
func (s *Service) emit(c *models.Case, action models.Action, prior, next models.Status,
	actorID id.EmployeeID, seq int64, now time.Time) {
	event := notification.Event{
		CaseID:      c.ID,
		CaseNumber:  c.CaseNumber,
		TenantID:    c.TenantID,
		Action:      action,
		PriorStatus: prior,
		NewStatus:   next,
		ActorID:     actorID,
		Seq:         seq,
		OccurredAt:  now,
	}
	if err := s.notifier.Notify(context.Background(), event); err != nil {
		s.logger.Error("transition event publish failed", "case_id", c.ID, "error", err)
	}
}
