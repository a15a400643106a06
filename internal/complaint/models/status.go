package models

import (
	dErrors "disciplina/pkg/domain-errors"
)

// Status is the authoritative lifecycle state of a complaint case. It is a
// cached projection of the audit ledger: only the engine mutates it, and each
// mutation commits atomically with exactly one audit entry.
type Status string

const (
	StatusUnderHRReview             Status = "under_hr_review"
	StatusWaitingForRebuttal        Status = "waiting_for_rebuttal"
	StatusWithDisciplineCommittee   Status = "with_discipline_committee"
	StatusCommitteeWaitingRebuttal  Status = "committee_waiting_rebuttal"
	StatusUnderHRAnalysis           Status = "under_hr_analysis"
	StatusCommitteeAnalysis         Status = "committee_analysis"
	StatusInvestigationComplete     Status = "investigation_complete"
	StatusAwaitingSuperiorDecision  Status = "awaiting_superior_decision"
	StatusAwaitingHQDecision        Status = "awaiting_hq_decision"
	StatusDecided                   Status = "decided"
	StatusDecidedByHQ               Status = "decided_by_hq"
	StatusOnAppeal                  Status = "on_appeal"
	StatusAppealDecided             Status = "appeal_decided"
	StatusClosedNoLiability         Status = "closed_no_liability"
	StatusClosed                    Status = "closed"
)

var validStatuses = map[Status]struct{}{
	StatusUnderHRReview:            {},
	StatusWaitingForRebuttal:       {},
	StatusWithDisciplineCommittee:  {},
	StatusCommitteeWaitingRebuttal: {},
	StatusUnderHRAnalysis:          {},
	StatusCommitteeAnalysis:        {},
	StatusInvestigationComplete:    {},
	StatusAwaitingSuperiorDecision: {},
	StatusAwaitingHQDecision:       {},
	StatusDecided:                  {},
	StatusDecidedByHQ:              {},
	StatusOnAppeal:                 {},
	StatusAppealDecided:            {},
	StatusClosedNoLiability:        {},
	StatusClosed:                   {},
}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	_, ok := validStatuses[s]
	return ok
}

// IsTerminal reports whether no further action is legal from s.
func (s Status) IsTerminal() bool { return s == StatusClosed }

// IsWaitingRebuttal reports whether s is one of the two rebuttal-window
// states the external deadline sweep watches.
func (s Status) IsWaitingRebuttal() bool {
	return s == StatusWaitingForRebuttal || s == StatusCommitteeWaitingRebuttal
}

// IsDecidedFamily reports whether s carries a punishment decision that an
// appeal or closure may act on.
func (s Status) IsDecidedFamily() bool {
	switch s {
	case StatusDecided, StatusDecidedByHQ, StatusAppealDecided:
		return true
	}
	return false
}

// ParseStatus validates a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", s)
	}
	return st, nil
}
