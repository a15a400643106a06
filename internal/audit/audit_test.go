package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
)

func ledgerFixture(caseID id.CaseID, actor id.EmployeeID, at time.Time) []Entry {
	return []Entry{
		{CaseID: caseID, Seq: 1, Action: models.ActionRegisterComplaint, ActorID: actor,
			NewStatus: models.StatusUnderHRReview, RecordedAt: at},
		{CaseID: caseID, Seq: 2, Action: models.ActionSendNotification, ActorID: actor,
			PriorStatus: models.StatusUnderHRReview, NewStatus: models.StatusWaitingForRebuttal,
			RecordedAt: at.Add(time.Hour)},
		{CaseID: caseID, Seq: 3, Action: models.ActionRecordRebuttal, ActorID: actor,
			PriorStatus: models.StatusWaitingForRebuttal, NewStatus: models.StatusUnderHRAnalysis,
			RecordedAt: at.Add(2 * time.Hour)},
	}
}

func TestValidate(t *testing.T) {
	caseID := id.NewCaseID()
	actor := id.NewEmployeeID()
	now := time.Now().UTC()

	t.Run("valid ledger", func(t *testing.T) {
		for _, e := range ledgerFixture(caseID, actor, now) {
			assert.NoError(t, e.Validate(), "seq %d", e.Seq)
		}
	})

	t.Run("registration with prior status", func(t *testing.T) {
		e := Entry{CaseID: caseID, Seq: 1, Action: models.ActionRegisterComplaint,
			PriorStatus: models.StatusUnderHRReview, NewStatus: models.StatusUnderHRReview}
		assert.Error(t, e.Validate())
	})

	t.Run("transition without prior status", func(t *testing.T) {
		e := Entry{CaseID: caseID, Seq: 2, Action: models.ActionSendNotification,
			NewStatus: models.StatusWaitingForRebuttal}
		assert.Error(t, e.Validate())
	})

	t.Run("registration past seq 1", func(t *testing.T) {
		e := Entry{CaseID: caseID, Seq: 4, Action: models.ActionRegisterComplaint,
			PriorStatus: models.StatusDecided, NewStatus: models.StatusUnderHRReview}
		assert.Error(t, e.Validate())
	})
}

func TestVerifyChain(t *testing.T) {
	caseID := id.NewCaseID()
	actor := id.NewEmployeeID()
	now := time.Now().UTC()

	t.Run("continuous ledger passes", func(t *testing.T) {
		require.NoError(t, VerifyChain(ledgerFixture(caseID, actor, now)))
	})

	t.Run("seq gap detected", func(t *testing.T) {
		entries := ledgerFixture(caseID, actor, now)
		entries[2].Seq = 4
		assert.Error(t, VerifyChain(entries))
	})

	t.Run("status discontinuity detected", func(t *testing.T) {
		entries := ledgerFixture(caseID, actor, now)
		entries[2].PriorStatus = models.StatusDecided
		assert.Error(t, VerifyChain(entries))
	})
}

func TestRegistrationEntry(t *testing.T) {
	complainantID := id.NewEmployeeID()
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	c, err := models.NewCase(id.NewCaseID(), models.RegisterInput{
		TenantID:          id.NewTenantID(),
		Article:           models.Article31,
		OffenseCode:       "ABS-01",
		AccusedEmployeeID: id.NewEmployeeID(),
		Complainant:       models.Complainant{Kind: models.ComplainantEmployee, EmployeeID: &complainantID},
		Summary:           "unexcused absence",
		IncidentDate:      now.AddDate(0, 0, -2),
	}, 1, now, models.AuthorityDirectSuperior)
	require.NoError(t, err)

	actor := id.NewEmployeeID()
	e := Registration(c, actor, "req-1")

	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, models.ActionRegisterComplaint, e.Action)
	assert.Empty(t, e.PriorStatus)
	assert.Equal(t, models.StatusUnderHRReview, e.NewStatus)
	assert.NoError(t, e.Validate())
}
