// Package engine is the complaint state machine. It owns the transition
// table, validates every submitted action against it, and applies the
// resulting mutation to a case snapshot.
//
// The table is data, not conditionals: each rule pairs a (status, action)
// key with a guard predicate and an apply function, so the legal-transition
// set is independently testable and auditable. The engine performs no
// persistence; the service layer runs it inside a per-case unit of work and
// commits the mutated case together with exactly one audit entry.
package engine

import (
	"time"

	"disciplina/internal/complaint/classification"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// CommitteeResolver reports the organizational placement of a committee.
// It returns the committee's center reference, nil for a headquarters-level
// committee. The service injects a closure over the committee directory so
// the engine itself stays transport-free.
type CommitteeResolver func(committeeID id.CommitteeID) (centerID *id.CenterID, err error)

// Context carries everything one transition attempt may consult. The case
// pointer is mutated in place by Apply; callers own snapshotting.
type Context struct {
	Case           *models.Case
	Classification classification.Classification
	// OpenAppeal is the case's single undecided appeal, nil when none exists.
	OpenAppeal *models.Appeal
	ActorID    id.EmployeeID
	Payload    models.Payload
	Now        time.Time

	ResolveCommittee CommitteeResolver
}

// Result describes an accepted transition.
type Result struct {
	Prior models.Status
	New   models.Status
	// AuditPayload is the action-specific detail recorded on the ledger
	// entry alongside the prior/new status pair.
	AuditPayload map[string]any
}

// Variant labels which procedural branch a rule belongs to; the catalog
// surfaces it so callers can render the HR and committee flows distinctly.
const (
	VariantHR        = "hr"
	VariantCommittee = "committee"
	VariantSuperior  = "superior"
	VariantHQ        = "hq"
	VariantAppeal    = "appeal"
	VariantClosure   = "closure"
)

// Rule is one row of the transition table.
type Rule struct {
	From   models.Status
	Action models.Action
	Next   models.Status
	// RequiredFields is the declared payload schema the catalog advertises.
	RequiredFields []string
	Variant        string

	// offered decides advisory availability without seeing a payload; the
	// catalog uses it. Nil means always offered from From.
	offered func(*Context) bool
	// guard rejects semantically invalid attempts with CodeGuardFailed.
	// Nil means no semantic guard beyond the (status, action) match.
	guard func(*Context) error
	// apply parses the payload (all parsing precedes any mutation so a
	// rejected payload leaves the case untouched), mutates the case, and
	// returns the audit detail.
	apply func(*Context) (map[string]any, error)
}

// Offered reports whether the rule should be advertised for the given
// context. The engine re-validates on submission regardless, so a stale
// advertisement can never bypass a guard.
func (r Rule) Offered(ec *Context) bool {
	if r.From != ec.Case.Status {
		return false
	}
	if r.offered == nil {
		return true
	}
	return r.offered(ec)
}

// Engine validates and applies transitions. It is stateless and safe for
// concurrent use; all per-case serialization happens in the store layer.
type Engine struct {
	rules []Rule
	index map[models.Status]map[models.Action]*Rule
}

// New builds the engine over the canonical transition table.
func New() *Engine {
	e := &Engine{rules: buildTable()}
	e.index = make(map[models.Status]map[models.Action]*Rule)
	for i := range e.rules {
		r := &e.rules[i]
		byAction, ok := e.index[r.From]
		if !ok {
			byAction = make(map[models.Action]*Rule)
			e.index[r.From] = byAction
		}
		byAction[r.Action] = r
	}
	return e
}

// Rules returns the transition table rows for a status, in declaration
// order. The catalog derives available actions from this.
func (e *Engine) Rules(from models.Status) []Rule {
	var out []Rule
	for _, r := range e.rules {
		if r.From == from {
			out = append(out, r)
		}
	}
	return out
}

// Apply validates the requested action against the current state, runs its
// guard, and applies its mutation. On any error the case is untouched.
func (e *Engine) Apply(ec *Context, action models.Action) (Result, error) {
	status := ec.Case.Status
	if status.IsTerminal() {
		return Result{}, dErrors.Newf(dErrors.CodeIllegalTransition,
			"case is closed; no action is legal from %q", status)
	}
	byAction, ok := e.index[status]
	if !ok {
		return Result{}, dErrors.Newf(dErrors.CodeIllegalTransition,
			"no actions are defined for status %q", status)
	}
	rule, ok := byAction[action]
	if !ok {
		return Result{}, dErrors.Newf(dErrors.CodeIllegalTransition,
			"action %q is not legal from status %q", action, status)
	}

	if rule.guard != nil {
		if err := rule.guard(ec); err != nil {
			return Result{}, err
		}
	}

	var detail map[string]any
	if rule.apply != nil {
		var err error
		detail, err = rule.apply(ec)
		if err != nil {
			return Result{}, err
		}
	}

	prior := ec.Case.Status
	ec.Case.Status = rule.Next
	ec.Case.Version++
	ec.Case.UpdatedAt = ec.Now

	return Result{Prior: prior, New: rule.Next, AuditPayload: detail}, nil
}

// buildTable declares the canonical transition table. Order within a status
// is the order the catalog advertises.
func buildTable() []Rule {
	return []Rule{
		// Initial HR review: notify the accused, or escalate severity to a
		// center-level discipline committee while that option still exists.
		{
			From: models.StatusUnderHRReview, Action: models.ActionSendNotification,
			Next:           models.StatusWaitingForRebuttal,
			RequiredFields: []string{"rebuttal_deadline"},
			Variant:        VariantHR,
			apply:          applySendNotification,
		},
		{
			From: models.StatusUnderHRReview, Action: models.ActionForwardToCommittee,
			Next:           models.StatusWithDisciplineCommittee,
			RequiredFields: []string{"committee_id"},
			Variant:        VariantCommittee,
			offered:        func(ec *Context) bool { return ec.Classification.IsLevelEscalated && !ec.Case.CommitteeAssigned() },
			guard:          guardForwardToCommittee,
			apply:          applyForwardToCommittee,
		},

		// Committee branch mirrors the HR branch for notification.
		{
			From: models.StatusWithDisciplineCommittee, Action: models.ActionSendNotification,
			Next:           models.StatusCommitteeWaitingRebuttal,
			RequiredFields: []string{"rebuttal_deadline"},
			Variant:        VariantCommittee,
			apply:          applySendNotification,
		},

		// Rebuttal window: either the accused responds or the external sweep
		// marks the deadline as passed. Expiry is a first-class, logged
		// transition - due process requires an auditable record of deadline
		// enforcement.
		{
			From: models.StatusWaitingForRebuttal, Action: models.ActionRecordRebuttal,
			Next:           models.StatusUnderHRAnalysis,
			RequiredFields: []string{"rebuttal"},
			Variant:        VariantHR,
			apply:          applyRecordRebuttal,
		},
		{
			From: models.StatusWaitingForRebuttal, Action: models.ActionMarkRebuttalDeadlinePassed,
			Next:    models.StatusUnderHRAnalysis,
			Variant: VariantHR,
			offered: deadlineElapsed,
			guard:   guardDeadlineElapsed,
			apply:   applyDeadlinePassed,
		},
		{
			From: models.StatusCommitteeWaitingRebuttal, Action: models.ActionRecordRebuttal,
			Next:           models.StatusCommitteeAnalysis,
			RequiredFields: []string{"rebuttal"},
			Variant:        VariantCommittee,
			apply:          applyRecordRebuttal,
		},
		{
			From: models.StatusCommitteeWaitingRebuttal, Action: models.ActionMarkRebuttalDeadlinePassed,
			Next:    models.StatusCommitteeAnalysis,
			Variant: VariantCommittee,
			offered: deadlineElapsed,
			guard:   guardDeadlineElapsed,
			apply:   applyDeadlinePassed,
		},

		// Investigation concludes with a liability finding.
		{
			From: models.StatusUnderHRAnalysis, Action: models.ActionRecordFinding,
			Next:           models.StatusInvestigationComplete,
			RequiredFields: []string{"finding", "finding_reason"},
			Variant:        VariantHR,
			apply:          applyRecordFinding,
		},
		{
			From: models.StatusCommitteeAnalysis, Action: models.ActionRecordFinding,
			Next:           models.StatusInvestigationComplete,
			RequiredFields: []string{"finding", "finding_reason"},
			Variant:        VariantCommittee,
			apply:          applyRecordFinding,
		},

		// Post-investigation fan-out: HQ escalation for eligible Article 31
		// cases, the decision path for liable findings, closure otherwise.
		{
			From: models.StatusInvestigationComplete, Action: models.ActionForwardToHQ,
			Next:           models.StatusAwaitingHQDecision,
			RequiredFields: []string{"hq_committee_id"},
			Variant:        VariantHQ,
			offered:        func(ec *Context) bool { return ec.Case.Article == models.Article31 && ec.Classification.CanForwardToHQ },
			guard:          guardForwardToHQ,
			apply:          applyForwardToHQ,
		},
		{
			From: models.StatusInvestigationComplete, Action: models.ActionRequestDecision,
			Next:    models.StatusAwaitingSuperiorDecision,
			Variant: VariantSuperior,
			offered: func(ec *Context) bool { return ec.Case.Finding == models.FindingLiable },
			guard: func(ec *Context) error {
				if ec.Case.Finding != models.FindingLiable {
					return dErrors.New(dErrors.CodeGuardFailed, "only a liable finding proceeds to a punishment decision")
				}
				return nil
			},
		},
		{
			From: models.StatusInvestigationComplete, Action: models.ActionCloseNoLiability,
			Next:    models.StatusClosedNoLiability,
			Variant: VariantClosure,
			offered: func(ec *Context) bool { return ec.Case.Finding == models.FindingNotLiable },
			guard: func(ec *Context) error {
				if ec.Case.Finding != models.FindingNotLiable {
					return dErrors.New(dErrors.CodeGuardFailed, "a case with a pending liability finding cannot be closed without liability")
				}
				return nil
			},
			apply: applyClose,
		},

		// Punishment decisions.
		{
			From: models.StatusAwaitingSuperiorDecision, Action: models.ActionRecordDecision,
			Next:           models.StatusDecided,
			RequiredFields: []string{"punishment_percentage", "punishment_description"},
			Variant:        VariantSuperior,
			apply:          applyRecordDecision,
		},
		{
			From: models.StatusAwaitingHQDecision, Action: models.ActionRecordHQDecision,
			Next:           models.StatusDecidedByHQ,
			RequiredFields: []string{"punishment_description"},
			Variant:        VariantHQ,
			apply:          applyRecordHQDecision,
		},

		// Appeal boundary. submitAppeal is legal from every decided-family
		// state; recordAppealDecision only while on appeal.
		{
			From: models.StatusDecided, Action: models.ActionSubmitAppeal,
			Next:           models.StatusOnAppeal,
			RequiredFields: []string{"reviewer_employee_id", "appeal_reason"},
			Variant:        VariantAppeal,
			offered:        func(ec *Context) bool { return ec.OpenAppeal == nil },
			guard:          guardSubmitAppeal,
			apply:          applySubmitAppeal,
		},
		{
			From: models.StatusDecidedByHQ, Action: models.ActionSubmitAppeal,
			Next:           models.StatusOnAppeal,
			RequiredFields: []string{"reviewer_employee_id", "appeal_reason"},
			Variant:        VariantAppeal,
			offered:        func(ec *Context) bool { return ec.OpenAppeal == nil },
			guard:          guardSubmitAppeal,
			apply:          applySubmitAppeal,
		},
		{
			From: models.StatusAppealDecided, Action: models.ActionSubmitAppeal,
			Next:           models.StatusOnAppeal,
			RequiredFields: []string{"reviewer_employee_id", "appeal_reason"},
			Variant:        VariantAppeal,
			offered:        func(ec *Context) bool { return ec.OpenAppeal == nil },
			guard:          guardSubmitAppeal,
			apply:          applySubmitAppeal,
		},
		// submitAppeal is recognized from on_appeal too, so a duplicate
		// submission rejects on the single-open-appeal guard instead of as
		// an unknown action. Never advertised: an open appeal always exists
		// in this state.
		{
			From: models.StatusOnAppeal, Action: models.ActionSubmitAppeal,
			Next:           models.StatusOnAppeal,
			RequiredFields: []string{"reviewer_employee_id", "appeal_reason"},
			Variant:        VariantAppeal,
			offered:        func(ec *Context) bool { return ec.OpenAppeal == nil },
			guard:          guardSubmitAppeal,
			apply:          applySubmitAppeal,
		},
		{
			From: models.StatusOnAppeal, Action: models.ActionRecordAppealDecision,
			Next:           models.StatusAppealDecided,
			RequiredFields: []string{"appeal_decision", "decision_reason"},
			Variant:        VariantAppeal,
			guard:          guardRecordAppealDecision,
			apply:          applyRecordAppealDecision,
		},

		// Terminal closure from any decided-family state or a no-liability
		// closure.
		{
			From: models.StatusDecided, Action: models.ActionCloseComplaint,
			Next: models.StatusClosed, Variant: VariantClosure, apply: applyClose,
		},
		{
			From: models.StatusDecidedByHQ, Action: models.ActionCloseComplaint,
			Next: models.StatusClosed, Variant: VariantClosure, apply: applyClose,
		},
		{
			From: models.StatusAppealDecided, Action: models.ActionCloseComplaint,
			Next: models.StatusClosed, Variant: VariantClosure, apply: applyClose,
		},
		{
			From: models.StatusClosedNoLiability, Action: models.ActionCloseComplaint,
			Next: models.StatusClosed, Variant: VariantClosure, apply: applyClose,
		},
	}
}
