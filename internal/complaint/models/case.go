package models

import (
	"fmt"
	"time"

	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// Article names the regulatory track a complaint is filed under. The two
// tracks carry distinct offense catalogs and escalation rules.
type Article string

const (
	Article30 Article = "article_30"
	Article31 Article = "article_31"
)

// ParseArticle validates a wire value into an Article.
func ParseArticle(s string) (Article, error) {
	switch Article(s) {
	case Article30, Article31:
		return Article(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown article %q", s)
}

// DecisionAuthority is the body empowered to issue the punishment decision.
type DecisionAuthority string

const (
	AuthorityDirectSuperior      DecisionAuthority = "direct_superior"
	AuthorityDisciplineCommittee DecisionAuthority = "discipline_committee"
)

// Finding is the liability determination made after investigation.
type Finding string

const (
	FindingLiable    Finding = "liable"
	FindingNotLiable Finding = "not_liable"
)

// ParseFinding validates a wire value into a Finding.
func ParseFinding(s string) (Finding, error) {
	switch Finding(s) {
	case FindingLiable, FindingNotLiable:
		return Finding(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown finding %q", s)
}

// ComplainantKind types the source of a complaint.
type ComplainantKind string

const (
	ComplainantEmployee  ComplainantKind = "employee"
	ComplainantExternal  ComplainantKind = "external"
	ComplainantAnonymous ComplainantKind = "anonymous"
)

// Complainant identifies who filed the complaint. EmployeeID is set only for
// the employee kind; Name is free text for external complainants.
type Complainant struct {
	Kind       ComplainantKind `json:"kind"`
	EmployeeID *id.EmployeeID  `json:"employee_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// Validate enforces the complainant shape invariants.
func (c Complainant) Validate() error {
	switch c.Kind {
	case ComplainantEmployee:
		if c.EmployeeID == nil || c.EmployeeID.IsNil() {
			return dErrors.New(dErrors.CodeInvalidInput, "employee complainant requires an employee ID").
				WithFields("complainant.employee_id")
		}
	case ComplainantExternal:
		if c.Name == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "external complainant requires a name").
				WithFields("complainant.name")
		}
	case ComplainantAnonymous:
		if c.EmployeeID != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "anonymous complainant must not carry an employee ID").
				WithFields("complainant.employee_id")
		}
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown complainant kind %q", c.Kind).
			WithFields("complainant.kind")
	}
	return nil
}

// Case is the aggregate root for one disciplinary complaint.
//
// Invariants:
//   - Status changes only through the engine's transition table.
//   - AssignedCommitteeID is set iff the case passed through an
//     assign/forward transition and was not forwarded further; at most one
//     active committee reference exists at a time.
//   - Version increments on every accepted transition; stores reject writes
//     whose version does not match the loaded row.
//   - A case may reach closed_no_liability only when no liability finding is
//     pending (finding recorded as not liable).
type Case struct {
	ID         id.CaseID   `json:"id"`
	TenantID   id.TenantID `json:"tenant_id"`
	CaseNumber string      `json:"case_number"`

	Article           Article           `json:"article"`
	OffenseCode       string            `json:"offense_code"`
	DecisionAuthority DecisionAuthority `json:"decision_authority"`

	AccusedEmployeeID id.EmployeeID `json:"accused_employee_id"`
	Complainant       Complainant   `json:"complainant"`

	Summary          string     `json:"summary"`
	SummaryAlt       string     `json:"summary_alt,omitempty"`
	IncidentDate     time.Time  `json:"incident_date"`
	IncidentLocation string     `json:"incident_location,omitempty"`
	RegisteredAt     time.Time  `json:"registered_at"`

	Status              Status          `json:"status"`
	AssignedCommitteeID *id.CommitteeID `json:"assigned_committee_id,omitempty"`
	CenterID            *id.CenterID    `json:"center_id,omitempty"`
	RebuttalDeadline    *time.Time      `json:"rebuttal_deadline,omitempty"`
	Rebuttal            string          `json:"rebuttal,omitempty"`

	Finding       Finding `json:"finding,omitempty"`
	FindingReason string  `json:"finding_reason,omitempty"`

	DecisionDate          *time.Time `json:"decision_date,omitempty"`
	PunishmentPercentage  *float64   `json:"punishment_percentage,omitempty"`
	PunishmentDescription string     `json:"punishment_description,omitempty"`

	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	ClosureReason string     `json:"closure_reason,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommitteeAssigned reports whether the case currently references a committee.
func (c *Case) CommitteeAssigned() bool {
	return c.AssignedCommitteeID != nil && !c.AssignedCommitteeID.IsNil()
}

// IsHeadquartersLevel reports whether the case sits at headquarters level
// (no center reference).
func (c *Case) IsHeadquartersLevel() bool {
	return c.CenterID == nil || c.CenterID.IsNil()
}

// Snapshot returns a copy safe to hand to callers while the original keeps
// mutating under the store lock.
func (c *Case) Snapshot() Case {
	cp := *c
	if c.AssignedCommitteeID != nil {
		v := *c.AssignedCommitteeID
		cp.AssignedCommitteeID = &v
	}
	if c.CenterID != nil {
		v := *c.CenterID
		cp.CenterID = &v
	}
	if c.RebuttalDeadline != nil {
		v := *c.RebuttalDeadline
		cp.RebuttalDeadline = &v
	}
	if c.DecisionDate != nil {
		v := *c.DecisionDate
		cp.DecisionDate = &v
	}
	if c.PunishmentPercentage != nil {
		v := *c.PunishmentPercentage
		cp.PunishmentPercentage = &v
	}
	if c.ClosedAt != nil {
		v := *c.ClosedAt
		cp.ClosedAt = &v
	}
	if c.Complainant.EmployeeID != nil {
		v := *c.Complainant.EmployeeID
		cp.Complainant.EmployeeID = &v
	}
	return cp
}

// RegisterInput carries the fields needed to open a new case.
type RegisterInput struct {
	TenantID          id.TenantID
	Article           Article
	OffenseCode       string
	AccusedEmployeeID id.EmployeeID
	Complainant       Complainant
	Summary           string
	SummaryAlt        string
	IncidentDate      time.Time
	IncidentLocation  string
	CenterID          *id.CenterID
}

// NewCase constructs a freshly registered case in the initial review state.
// caseSeq is the tenant-scoped sequence the store allocated for the
// human-readable case number.
func NewCase(caseID id.CaseID, in RegisterInput, caseSeq int64, now time.Time, authority DecisionAuthority) (*Case, error) {
	if in.TenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "tenant ID is required").WithFields("tenant_id")
	}
	if in.AccusedEmployeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "accused employee ID is required").WithFields("accused_employee_id")
	}
	if in.Summary == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "summary is required").WithFields("summary")
	}
	if in.OffenseCode == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "offense code is required").WithFields("offense_code")
	}
	if err := in.Complainant.Validate(); err != nil {
		return nil, err
	}

	return &Case{
		ID:                caseID,
		TenantID:          in.TenantID,
		CaseNumber:        fmt.Sprintf("DC-%d-%05d", now.Year(), caseSeq),
		Article:           in.Article,
		OffenseCode:       in.OffenseCode,
		DecisionAuthority: authority,
		AccusedEmployeeID: in.AccusedEmployeeID,
		Complainant:       in.Complainant,
		Summary:           in.Summary,
		SummaryAlt:        in.SummaryAlt,
		IncidentDate:      in.IncidentDate,
		IncidentLocation:  in.IncidentLocation,
		RegisteredAt:      now,
		Status:            StatusUnderHRReview,
		CenterID:          in.CenterID,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}
