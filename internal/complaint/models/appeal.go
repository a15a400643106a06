package models

import (
	"time"

	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// AppealDecision is the reviewer's ruling on an appeal.
type AppealDecision string

const (
	AppealUpheld     AppealDecision = "upheld"
	AppealModified   AppealDecision = "modified"
	AppealOverturned AppealDecision = "overturned"
)

// ParseAppealDecision validates a wire value into an AppealDecision.
func ParseAppealDecision(s string) (AppealDecision, error) {
	switch AppealDecision(s) {
	case AppealUpheld, AppealModified, AppealOverturned:
		return AppealDecision(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown appeal decision %q", s)
}

// Appeal is a post-decision challenge attached to a case. Appeals carry
// permanent legal weight: they are created once, decided once, never deleted.
//
// Invariant: at most one open (undecided) appeal exists per case at any time.
type Appeal struct {
	ID                 id.AppealID   `json:"id"`
	CaseID             id.CaseID     `json:"case_id"`
	ReviewerEmployeeID id.EmployeeID `json:"reviewer_employee_id"`
	SubmittedAt        time.Time     `json:"submitted_at"`
	Reason             string        `json:"reason"`

	Decision       *AppealDecision `json:"decision,omitempty"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
	DecisionReason string          `json:"decision_reason,omitempty"`
	// NewPunishment replaces the original punishment description. Meaningful
	// only when Decision is modified.
	NewPunishment string `json:"new_punishment,omitempty"`
}

// IsOpen reports whether the appeal still awaits a reviewer decision.
func (a *Appeal) IsOpen() bool { return a.Decision == nil }

// CanDecide checks that the appeal accepts a decision.
func (a *Appeal) CanDecide() error {
	if !a.IsOpen() {
		return dErrors.New(dErrors.CodeGuardFailed, "appeal is already decided")
	}
	return nil
}

// ApplyDecision records the reviewer's ruling. Call CanDecide first.
func (a *Appeal) ApplyDecision(decision AppealDecision, reason, newPunishment string, now time.Time) {
	d := decision
	a.Decision = &d
	a.DecidedAt = &now
	a.DecisionReason = reason
	if decision == AppealModified {
		a.NewPunishment = newPunishment
	}
}
