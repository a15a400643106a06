package engine

import (
	"disciplina/internal/complaint/appeals"
	"disciplina/internal/complaint/models"
	dErrors "disciplina/pkg/domain-errors"
)

func deadlineElapsed(ec *Context) bool {
	return ec.Case.RebuttalDeadline != nil && ec.Now.After(*ec.Case.RebuttalDeadline)
}

func guardDeadlineElapsed(ec *Context) error {
	if ec.Case.RebuttalDeadline == nil {
		return dErrors.New(dErrors.CodeGuardFailed, "case has no rebuttal deadline to enforce")
	}
	if !ec.Now.After(*ec.Case.RebuttalDeadline) {
		return dErrors.Newf(dErrors.CodeGuardFailed,
			"rebuttal deadline %s has not passed", ec.Case.RebuttalDeadline.Format("2006-01-02"))
	}
	return nil
}

func guardForwardToCommittee(ec *Context) error {
	if !ec.Classification.IsLevelEscalated {
		return dErrors.New(dErrors.CodeGuardFailed,
			"case is not eligible for committee escalation")
	}
	if ec.Case.CommitteeAssigned() {
		return dErrors.New(dErrors.CodeGuardFailed,
			"case already has an assigned discipline committee")
	}
	return nil
}

func guardForwardToHQ(ec *Context) error {
	if ec.Case.Article != models.Article31 {
		return dErrors.New(dErrors.CodeGuardFailed,
			"only article 31 cases escalate to headquarters")
	}
	if !ec.Classification.CanForwardToHQ {
		return dErrors.New(dErrors.CodeGuardFailed,
			"case is not eligible for headquarters escalation")
	}
	return nil
}

func guardSubmitAppeal(ec *Context) error {
	return appeals.EnsureNoneOpen(ec.OpenAppeal)
}

func guardRecordAppealDecision(ec *Context) error {
	return appeals.EnsureOpen(ec.OpenAppeal)
}

func applySendNotification(ec *Context) (map[string]any, error) {
	deadline, err := ec.Payload.Time("rebuttal_deadline")
	if err != nil {
		return nil, err
	}
	if !deadline.After(ec.Now) {
		return nil, dErrors.New(dErrors.CodeInvalidPayload,
			"rebuttal_deadline must be in the future").WithFields("rebuttal_deadline")
	}
	ec.Case.RebuttalDeadline = &deadline
	return map[string]any{"rebuttal_deadline": deadline}, nil
}

func applyForwardToCommittee(ec *Context) (map[string]any, error) {
	committeeID, err := ec.Payload.CommitteeID("committee_id")
	if err != nil {
		return nil, err
	}
	centerID, err := ec.ResolveCommittee(committeeID)
	if err != nil {
		return nil, err
	}
	// A center-level committee is required here; headquarters committees are
	// only reachable through the HQ escalation path.
	if centerID == nil {
		return nil, dErrors.New(dErrors.CodeInvalidPayload,
			"committee_id must reference a center-level committee").WithFields("committee_id")
	}
	ec.Case.AssignedCommitteeID = &committeeID
	ec.Case.CenterID = centerID
	return map[string]any{"committee_id": committeeID.String(), "center_id": centerID.String()}, nil
}

func applyForwardToHQ(ec *Context) (map[string]any, error) {
	committeeID, err := ec.Payload.CommitteeID("hq_committee_id")
	if err != nil {
		return nil, err
	}
	centerID, err := ec.ResolveCommittee(committeeID)
	if err != nil {
		return nil, err
	}
	if centerID != nil {
		return nil, dErrors.New(dErrors.CodeInvalidPayload,
			"hq_committee_id must reference a headquarters committee").WithFields("hq_committee_id")
	}
	ec.Case.AssignedCommitteeID = &committeeID
	ec.Case.CenterID = nil
	return map[string]any{"hq_committee_id": committeeID.String()}, nil
}

func applyRecordRebuttal(ec *Context) (map[string]any, error) {
	rebuttal, err := ec.Payload.String("rebuttal")
	if err != nil {
		return nil, err
	}
	ec.Case.Rebuttal = rebuttal
	return map[string]any{"rebuttal": rebuttal}, nil
}

func applyDeadlinePassed(ec *Context) (map[string]any, error) {
	return map[string]any{"rebuttal_deadline": *ec.Case.RebuttalDeadline, "enforced_at": ec.Now}, nil
}

func applyRecordFinding(ec *Context) (map[string]any, error) {
	finding, err := ec.Payload.Finding("finding")
	if err != nil {
		return nil, err
	}
	reason, err := ec.Payload.String("finding_reason")
	if err != nil {
		return nil, err
	}
	ec.Case.Finding = finding
	ec.Case.FindingReason = reason
	return map[string]any{"finding": string(finding), "finding_reason": reason}, nil
}

func applyRecordDecision(ec *Context) (map[string]any, error) {
	pct, err := ec.Payload.Percentage("punishment_percentage")
	if err != nil {
		return nil, err
	}
	desc, err := ec.Payload.String("punishment_description")
	if err != nil {
		return nil, err
	}
	ec.Case.PunishmentPercentage = &pct
	ec.Case.PunishmentDescription = desc
	ec.Case.DecisionDate = &ec.Now
	return map[string]any{"punishment_percentage": pct, "punishment_description": desc}, nil
}

func applyRecordHQDecision(ec *Context) (map[string]any, error) {
	desc, err := ec.Payload.String("punishment_description")
	if err != nil {
		return nil, err
	}
	ec.Case.PunishmentDescription = desc
	ec.Case.DecisionDate = &ec.Now
	return map[string]any{"punishment_description": desc}, nil
}

// applySubmitAppeal validates the appeal payload and records the detail;
// the service constructs and persists the Appeal row from the same payload
// via appeals.ParseSubmitPayload and appeals.NewAppeal.
func applySubmitAppeal(ec *Context) (map[string]any, error) {
	in, err := appeals.ParseSubmitPayload(ec.Payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"reviewer_employee_id": in.ReviewerEmployeeID.String(),
		"appeal_reason":        in.Reason,
	}, nil
}

func applyRecordAppealDecision(ec *Context) (map[string]any, error) {
	in, err := appeals.ParseDecisionPayload(ec.Payload)
	if err != nil {
		return nil, err
	}
	if err := appeals.Decide(ec.OpenAppeal, in, ec.Now); err != nil {
		return nil, err
	}
	// A modified ruling replaces the case's standing punishment.
	if in.Decision == models.AppealModified {
		ec.Case.PunishmentDescription = in.NewPunishment
	}
	detail := map[string]any{
		"appeal_id":       ec.OpenAppeal.ID.String(),
		"appeal_decision": string(in.Decision),
		"decision_reason": in.Reason,
	}
	if in.NewPunishment != "" {
		detail["new_punishment"] = in.NewPunishment
	}
	return detail, nil
}

func applyClose(ec *Context) (map[string]any, error) {
	reason, err := ec.Payload.OptionalString("closure_reason")
	if err != nil {
		return nil, err
	}
	ec.Case.ClosedAt = &ec.Now
	ec.Case.ClosureReason = reason
	detail := map[string]any{}
	if reason != "" {
		detail["closure_reason"] = reason
	}
	return detail, nil
}
