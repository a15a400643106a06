// Package audit defines the append-only ledger recorded alongside every
// case transition. Entries are never updated or deleted; the case status
// column is a cached projection of this ledger.
package audit

import (
	"time"

	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// Entry is one ledger row. Seq is gapless per case and starts at 1 with the
// registration entry, whose PriorStatus is empty.
type Entry struct {
	CaseID      id.CaseID      `json:"case_id"`
	Seq         int64          `json:"seq"`
	Action      models.Action  `json:"action"`
	ActorID     id.EmployeeID  `json:"actor_id"`
	PriorStatus models.Status  `json:"prior_status,omitempty"`
	NewStatus   models.Status  `json:"new_status"`
	Payload     map[string]any `json:"payload,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	RecordedAt  time.Time      `json:"recorded_at"`
}

// Registration builds the ledger's opening entry for a freshly registered
// case.
func Registration(c *models.Case, actorID id.EmployeeID, requestID string) Entry {
	return Entry{
		CaseID:     c.ID,
		Seq:        1,
		Action:     models.ActionRegisterComplaint,
		ActorID:    actorID,
		NewStatus:  c.Status,
		RequestID:  requestID,
		RecordedAt: c.RegisteredAt,
	}
}

// Transition builds the entry for an accepted transition. The caller
// supplies the seq allocated under the case lock.
func Transition(caseID id.CaseID, seq int64, action models.Action, actorID id.EmployeeID,
	prior, next models.Status, payload map[string]any, requestID string, now time.Time) Entry {
	return Entry{
		CaseID:      caseID,
		Seq:         seq,
		Action:      action,
		ActorID:     actorID,
		PriorStatus: prior,
		NewStatus:   next,
		Payload:     payload,
		RequestID:   requestID,
		RecordedAt:  now,
	}
}

// Validate enforces the ledger shape invariants before persistence.
func (e Entry) Validate() error {
	if e.CaseID.IsNil() {
		return dErrors.New(dErrors.CodeInternal, "audit entry without case ID")
	}
	if e.Seq < 1 {
		return dErrors.Newf(dErrors.CodeInternal, "audit seq %d below 1", e.Seq)
	}
	if e.Seq == 1 {
		if e.Action != models.ActionRegisterComplaint {
			return dErrors.New(dErrors.CodeInternal, "first ledger entry must be the registration")
		}
		if e.PriorStatus != "" {
			return dErrors.New(dErrors.CodeInternal, "registration entry must not carry a prior status")
		}
	} else {
		if e.Action == models.ActionRegisterComplaint {
			return dErrors.New(dErrors.CodeInternal, "registration may only appear at seq 1")
		}
		if e.PriorStatus == "" {
			return dErrors.New(dErrors.CodeInternal, "transition entry requires a prior status")
		}
	}
	if e.NewStatus == "" {
		return dErrors.New(dErrors.CodeInternal, "audit entry requires a new status")
	}
	return nil
}

// VerifyChain checks a case's full ledger for the gapless-seq and
// status-continuity invariants. Stores run it in tests; the read path may
// run it as a consistency probe.
func VerifyChain(entries []Entry) error {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if e.Seq != int64(i+1) {
			return dErrors.Newf(dErrors.CodeInternal, "ledger gap: entry %d has seq %d", i, e.Seq)
		}
		if i > 0 && e.PriorStatus != entries[i-1].NewStatus {
			return dErrors.Newf(dErrors.CodeInternal,
				"ledger discontinuity at seq %d: prior %q does not match previous new %q",
				e.Seq, e.PriorStatus, entries[i-1].NewStatus)
		}
	}
	return nil
}
