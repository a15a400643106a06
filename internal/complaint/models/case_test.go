package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

func validRegisterInput() RegisterInput {
	complainantID := id.NewEmployeeID()
	return RegisterInput{
		TenantID:          id.NewTenantID(),
		Article:           Article30,
		OffenseCode:       "30-12",
		AccusedEmployeeID: id.NewEmployeeID(),
		Complainant:       Complainant{Kind: ComplainantEmployee, EmployeeID: &complainantID},
		Summary:           "failure to follow safety procedure",
		IncidentDate:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewCase(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	in := validRegisterInput()

	c, err := NewCase(id.NewCaseID(), in, 42, now, AuthorityDisciplineCommittee)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("DC-%d-00042", now.Year()), c.CaseNumber)
	assert.Equal(t, StatusUnderHRReview, c.Status)
	assert.Equal(t, AuthorityDisciplineCommittee, c.DecisionAuthority)
	assert.Equal(t, 1, c.Version)
	assert.Equal(t, now, c.RegisteredAt)
	assert.False(t, c.CommitteeAssigned())
	assert.True(t, c.IsHeadquartersLevel())
}

func TestNewCaseValidation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"missing tenant", func(in *RegisterInput) { in.TenantID = id.TenantID{} }, "tenant_id"},
		{"missing accused", func(in *RegisterInput) { in.AccusedEmployeeID = id.EmployeeID{} }, "accused_employee_id"},
		{"missing summary", func(in *RegisterInput) { in.Summary = "" }, "summary"},
		{"missing offense code", func(in *RegisterInput) { in.OffenseCode = "" }, "offense_code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validRegisterInput()
			tt.mutate(&in)
			_, err := NewCase(id.NewCaseID(), in, 1, now, AuthorityDirectSuperior)
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
			assert.Contains(t, dErrors.FieldsOf(err), tt.field)
		})
	}
}

func TestComplainantValidate(t *testing.T) {
	employeeID := id.NewEmployeeID()

	assert.NoError(t, Complainant{Kind: ComplainantEmployee, EmployeeID: &employeeID}.Validate())
	assert.NoError(t, Complainant{Kind: ComplainantExternal, Name: "Citizen"}.Validate())
	assert.NoError(t, Complainant{Kind: ComplainantAnonymous}.Validate())

	assert.Error(t, Complainant{Kind: ComplainantEmployee}.Validate())
	assert.Error(t, Complainant{Kind: ComplainantExternal}.Validate())
	assert.Error(t, Complainant{Kind: ComplainantAnonymous, EmployeeID: &employeeID}.Validate())
	assert.Error(t, Complainant{Kind: "postal"}.Validate())
}

func TestSnapshotIsIndependent(t *testing.T) {
	now := time.Now()
	c, err := NewCase(id.NewCaseID(), validRegisterInput(), 1, now, AuthorityDisciplineCommittee)
	require.NoError(t, err)
	committeeID := id.NewCommitteeID()
	c.AssignedCommitteeID = &committeeID
	deadline := now.Add(72 * time.Hour)
	c.RebuttalDeadline = &deadline

	snap := c.Snapshot()
	*c.AssignedCommitteeID = id.NewCommitteeID()
	*c.RebuttalDeadline = now.Add(-time.Hour)
	c.Status = StatusClosed

	assert.Equal(t, committeeID, *snap.AssignedCommitteeID)
	assert.True(t, deadline.Equal(*snap.RebuttalDeadline))
	assert.Equal(t, StatusUnderHRReview, snap.Status)
}

func TestStatusFamilies(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.False(t, StatusClosedNoLiability.IsTerminal(), "closed_no_liability still accepts closeComplaint")

	assert.True(t, StatusWaitingForRebuttal.IsWaitingRebuttal())
	assert.True(t, StatusCommitteeWaitingRebuttal.IsWaitingRebuttal())
	assert.False(t, StatusUnderHRAnalysis.IsWaitingRebuttal())

	for _, s := range []Status{StatusDecided, StatusDecidedByHQ, StatusAppealDecided} {
		assert.True(t, s.IsDecidedFamily(), s)
	}
	assert.False(t, StatusOnAppeal.IsDecidedFamily())
}

func TestParsers(t *testing.T) {
	article, err := ParseArticle("article_31")
	require.NoError(t, err)
	assert.Equal(t, Article31, article)
	_, err = ParseArticle("article_29")
	assert.Error(t, err)

	status, err := ParseStatus("on_appeal")
	require.NoError(t, err)
	assert.Equal(t, StatusOnAppeal, status)
	_, err = ParseStatus("limbo")
	assert.Error(t, err)

	finding, err := ParseFinding("liable")
	require.NoError(t, err)
	assert.Equal(t, FindingLiable, finding)
	_, err = ParseFinding("guilty")
	assert.Error(t, err)
}
