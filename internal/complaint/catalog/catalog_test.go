package catalog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disciplina/internal/complaint/classification"
	"disciplina/internal/complaint/engine"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
)

func caseInStatus(t *testing.T, article models.Article, status models.Status) *models.Case {
	t.Helper()
	complainantID := id.NewEmployeeID()
	authority := models.AuthorityDirectSuperior
	if article == models.Article30 {
		authority = models.AuthorityDisciplineCommittee
	}
	c, err := models.NewCase(id.NewCaseID(), models.RegisterInput{
		TenantID:          id.NewTenantID(),
		Article:           article,
		OffenseCode:       "NEG-02",
		AccusedEmployeeID: id.NewEmployeeID(),
		Complainant:       models.Complainant{Kind: models.ComplainantEmployee, EmployeeID: &complainantID},
		Summary:           "negligent handling of equipment",
		IncidentDate:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}, 7, time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC), authority)
	require.NoError(t, err)
	c.Status = status
	return c
}

func ctxFor(c *models.Case) *engine.Context {
	return &engine.Context{
		Case:           c,
		Classification: classification.ClassifyCase(c),
		Now:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestForListsOfferedActions(t *testing.T) {
	cat := New(engine.New(), nil, slog.Default())

	t.Run("fresh article 30 case offers escalation", func(t *testing.T) {
		c := caseInStatus(t, models.Article30, models.StatusUnderHRReview)
		got := cat.For(context.Background(), ctxFor(c))

		require.Len(t, got, 2)
		assert.Equal(t, models.ActionSendNotification, got[0].Action)
		assert.Equal(t, models.StatusWaitingForRebuttal, got[0].NextStatus)
		assert.Equal(t, []string{"rebuttal_deadline"}, got[0].RequiredFields)
		assert.Equal(t, models.ActionForwardToCommittee, got[1].Action)
	})

	t.Run("article 31 case hides escalation", func(t *testing.T) {
		c := caseInStatus(t, models.Article31, models.StatusUnderHRReview)
		got := cat.For(context.Background(), ctxFor(c))

		require.Len(t, got, 1)
		assert.Equal(t, models.ActionSendNotification, got[0].Action)
	})

	t.Run("deadline action appears only after expiry", func(t *testing.T) {
		c := caseInStatus(t, models.Article31, models.StatusWaitingForRebuttal)
		deadline := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		c.RebuttalDeadline = &deadline

		ec := ctxFor(c)
		got := cat.For(context.Background(), ec)
		require.Len(t, got, 1)
		assert.Equal(t, models.ActionRecordRebuttal, got[0].Action)

		ec.Now = deadline.AddDate(0, 0, 1)
		got = cat.For(context.Background(), ec)
		require.Len(t, got, 2)
		assert.Equal(t, models.ActionMarkRebuttalDeadlinePassed, got[1].Action)
	})

	t.Run("closed case offers nothing", func(t *testing.T) {
		c := caseInStatus(t, models.Article31, models.StatusClosed)
		got := cat.For(context.Background(), ctxFor(c))
		assert.Empty(t, got)
		assert.NotNil(t, got, "empty list marshals as [] not null")
	})
}
