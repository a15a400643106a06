// Package appeals implements the appeal sub-ledger: the nested two-state
// lifecycle (submitted -> decided) attached to a decided case.
//
// Modeling appeals as their own small entity keeps the parent transition
// table free of appeal-state combinations; the parent engine only observes
// the "no open appeal" and "open appeal decided" boundaries.
package appeals

import (
	"time"

	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// SubmitInput is the validated payload of a submitAppeal action.
type SubmitInput struct {
	ReviewerEmployeeID id.EmployeeID
	Reason             string
}

// ParseSubmitPayload validates the submitAppeal payload fields.
func ParseSubmitPayload(p models.Payload) (SubmitInput, error) {
	reviewer, err := p.EmployeeID("reviewer_employee_id")
	if err != nil {
		return SubmitInput{}, err
	}
	reason, err := p.String("appeal_reason")
	if err != nil {
		return SubmitInput{}, err
	}
	return SubmitInput{ReviewerEmployeeID: reviewer, Reason: reason}, nil
}

// DecisionInput is the validated payload of a recordAppealDecision action.
type DecisionInput struct {
	Decision      models.AppealDecision
	Reason        string
	NewPunishment string
}

// ParseDecisionPayload validates the recordAppealDecision payload fields.
// A modified decision without a replacement punishment is an invalid payload,
// not a guard failure: the field is structurally required by the decision
// variant.
func ParseDecisionPayload(p models.Payload) (DecisionInput, error) {
	decision, err := p.AppealDecision("appeal_decision")
	if err != nil {
		return DecisionInput{}, err
	}
	reason, err := p.String("decision_reason")
	if err != nil {
		return DecisionInput{}, err
	}
	newPunishment, err := p.OptionalString("new_punishment")
	if err != nil {
		return DecisionInput{}, err
	}
	if decision == models.AppealModified && newPunishment == "" {
		return DecisionInput{}, dErrors.New(dErrors.CodeInvalidPayload,
			"a modified decision requires a replacement punishment").WithFields("new_punishment")
	}
	return DecisionInput{Decision: decision, Reason: reason, NewPunishment: newPunishment}, nil
}

// EnsureNoneOpen guards the single-open-appeal invariant.
func EnsureNoneOpen(open *models.Appeal) error {
	if open != nil {
		return dErrors.New(dErrors.CodeGuardFailed, "an open appeal already exists on this case")
	}
	return nil
}

// EnsureOpen guards that a decision targets the case's one open appeal.
func EnsureOpen(open *models.Appeal) error {
	if open == nil {
		return dErrors.New(dErrors.CodeGuardFailed, "no open appeal exists on this case")
	}
	return nil
}

// NewAppeal constructs a fresh open appeal for a case.
func NewAppeal(caseID id.CaseID, in SubmitInput, now time.Time) *models.Appeal {
	return &models.Appeal{
		ID:                 id.NewAppealID(),
		CaseID:             caseID,
		ReviewerEmployeeID: in.ReviewerEmployeeID,
		SubmittedAt:        now,
		Reason:             in.Reason,
	}
}

// Decide records the reviewer's ruling on the open appeal.
func Decide(appeal *models.Appeal, in DecisionInput, now time.Time) error {
	if err := appeal.CanDecide(); err != nil {
		return err
	}
	appeal.ApplyDecision(in.Decision, in.Reason, in.NewPunishment, now)
	return nil
}
