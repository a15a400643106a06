package models

import (
	"strings"
	"time"

	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// Payload carries the action-specific fields of a transition request as
// decoded JSON. The engine validates it against the action's declared schema
// before any mutation; a payload that fails validation rejects the whole
// transition with no partial state change.
type Payload map[string]any

// String extracts a required non-blank string field.
func (p Payload) String(field string) (string, error) {
	raw, ok := p[field]
	if !ok {
		return "", dErrors.Newf(dErrors.CodeInvalidPayload, "missing required field %q", field).WithFields(field)
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be a non-empty string", field).WithFields(field)
	}
	return s, nil
}

// OptionalString extracts a string field, returning "" when absent.
func (p Payload) OptionalString(field string) (string, error) {
	if _, ok := p[field]; !ok {
		return "", nil
	}
	return p.String(field)
}

// Time extracts a required RFC3339 timestamp field.
func (p Payload) Time(field string) (time.Time, error) {
	s, err := p.String(field)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be an RFC3339 timestamp", field).WithFields(field)
	}
	return t, nil
}

// Percentage extracts a required numeric field constrained to [0, 100].
func (p Payload) Percentage(field string) (float64, error) {
	raw, ok := p[field]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidPayload, "missing required field %q", field).WithFields(field)
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	default:
		return 0, dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be a number", field).WithFields(field)
	}
	if v < 0 || v > 100 {
		return 0, dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be between 0 and 100", field).WithFields(field)
	}
	return v, nil
}

// CommitteeID extracts a required committee ID field.
func (p Payload) CommitteeID(field string) (id.CommitteeID, error) {
	s, err := p.String(field)
	if err != nil {
		return id.CommitteeID{}, err
	}
	cid, err := id.ParseCommitteeID(s)
	if err != nil {
		return id.CommitteeID{}, dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be a committee UUID", field).WithFields(field)
	}
	return cid, nil
}

// EmployeeID extracts a required employee ID field.
func (p Payload) EmployeeID(field string) (id.EmployeeID, error) {
	s, err := p.String(field)
	if err != nil {
		return id.EmployeeID{}, err
	}
	eid, err := id.ParseEmployeeID(s)
	if err != nil {
		return id.EmployeeID{}, dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be an employee UUID", field).WithFields(field)
	}
	return eid, nil
}

// Finding extracts a required liability finding field.
func (p Payload) Finding(field string) (Finding, error) {
	s, err := p.String(field)
	if err != nil {
		return "", err
	}
	f, err := ParseFinding(s)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be one of liable, not_liable", field).WithFields(field)
	}
	return f, nil
}

// AppealDecision extracts a required appeal decision field.
func (p Payload) AppealDecision(field string) (AppealDecision, error) {
	s, err := p.String(field)
	if err != nil {
		return "", err
	}
	d, err := ParseAppealDecision(s)
	if err != nil {
		return "", dErrors.Newf(dErrors.CodeInvalidPayload, "field %q must be one of upheld, modified, overturned", field).WithFields(field)
	}
	return d, nil
}
