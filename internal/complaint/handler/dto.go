package handler

import (
	"time"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/catalog"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

type complainantDTO struct {
	Kind       string `json:"kind"`
	EmployeeID string `json:"employee_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

type registerCaseRequest struct {
	TenantID          string         `json:"tenant_id"`
	Article           string         `json:"article"`
	OffenseCode       string         `json:"offense_code"`
	AccusedEmployeeID string         `json:"accused_employee_id"`
	Complainant       complainantDTO `json:"complainant"`
	Summary           string         `json:"summary"`
	SummaryAlt        string         `json:"summary_alt,omitempty"`
	IncidentDate      string         `json:"incident_date"`
	IncidentLocation  string         `json:"incident_location,omitempty"`
	CenterID          string         `json:"center_id,omitempty"`
}

func (r registerCaseRequest) toInput() (models.RegisterInput, error) {
	var in models.RegisterInput

	tenantID, err := id.ParseTenantID(r.TenantID)
	if err != nil {
		return in, err
	}
	article, err := models.ParseArticle(r.Article)
	if err != nil {
		return in, err
	}
	accusedID, err := id.ParseEmployeeID(r.AccusedEmployeeID)
	if err != nil {
		return in, err
	}
	incidentDate, err := time.Parse(time.RFC3339, r.IncidentDate)
	if err != nil {
		return in, dErrors.New(dErrors.CodeInvalidInput,
			"incident_date must be an RFC 3339 timestamp").WithFields("incident_date")
	}

	complainant := models.Complainant{Kind: models.ComplainantKind(r.Complainant.Kind), Name: r.Complainant.Name}
	if r.Complainant.EmployeeID != "" {
		employeeID, err := id.ParseEmployeeID(r.Complainant.EmployeeID)
		if err != nil {
			return in, err
		}
		complainant.EmployeeID = &employeeID
	}

	in = models.RegisterInput{
		TenantID:          tenantID,
		Article:           article,
		OffenseCode:       r.OffenseCode,
		AccusedEmployeeID: accusedID,
		Complainant:       complainant,
		Summary:           r.Summary,
		SummaryAlt:        r.SummaryAlt,
		IncidentDate:      incidentDate,
		IncidentLocation:  r.IncidentLocation,
	}
	if r.CenterID != "" {
		centerID, err := id.ParseCenterID(r.CenterID)
		if err != nil {
			return in, err
		}
		in.CenterID = &centerID
	}
	return in, nil
}

type submitActionRequest struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

type availableActionsResponse struct {
	CaseID  id.CaseID                  `json:"case_id"`
	Actions []catalog.ActionDescriptor `json:"actions"`
}

type auditTrailResponse struct {
	CaseID  id.CaseID     `json:"case_id"`
	Entries []audit.Entry `json:"entries"`
}

type appealsResponse struct {
	CaseID  id.CaseID       `json:"case_id"`
	Appeals []models.Appeal `json:"appeals"`
}

type rebuttalDueResponse struct {
	Before time.Time     `json:"before"`
	Cases  []models.Case `json:"cases"`
}
