package models

import (
	dErrors "disciplina/pkg/domain-errors"
)

// Action names one legal operation on a case. The transition table in the
// engine package is the single source of truth for which actions are legal
// from which status.
type Action string

const (
	// ActionRegisterComplaint is the synthetic action recorded as audit entry
	// one when a case is created. It is never submittable.
	ActionRegisterComplaint Action = "registerComplaint"

	ActionSendNotification           Action = "sendNotification"
	ActionForwardToCommittee         Action = "forwardToCommittee"
	ActionRecordRebuttal             Action = "recordRebuttal"
	ActionMarkRebuttalDeadlinePassed Action = "markRebuttalDeadlinePassed"
	ActionRecordFinding              Action = "recordFinding"
	ActionForwardToHQ                Action = "forwardToHq"
	ActionRequestDecision            Action = "requestDecision"
	ActionRecordDecision             Action = "recordDecision"
	ActionRecordHQDecision           Action = "recordHqDecision"
	ActionSubmitAppeal               Action = "submitAppeal"
	ActionRecordAppealDecision       Action = "recordAppealDecision"
	ActionCloseNoLiability           Action = "closeNoLiability"
	ActionCloseComplaint             Action = "closeComplaint"
)

var submittableActions = map[Action]struct{}{
	ActionSendNotification:           {},
	ActionForwardToCommittee:         {},
	ActionRecordRebuttal:             {},
	ActionMarkRebuttalDeadlinePassed: {},
	ActionRecordFinding:              {},
	ActionForwardToHQ:                {},
	ActionRequestDecision:            {},
	ActionRecordDecision:             {},
	ActionRecordHQDecision:           {},
	ActionSubmitAppeal:               {},
	ActionRecordAppealDecision:       {},
	ActionCloseNoLiability:           {},
	ActionCloseComplaint:             {},
}

func (a Action) String() string { return string(a) }

// ParseAction validates a wire value into a submittable Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := submittableActions[a]; !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown action %q", s)
	}
	return a, nil
}
