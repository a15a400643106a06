// Package notification publishes case transition events for downstream
// consumers (the notification letter service and the HR reporting feed).
// Publishing is best effort: a transition that committed is never rolled
// back because its event could not be delivered.
package notification

import (
	"context"
	"time"

	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
)

// Event is one case transition, emitted after commit.
type Event struct {
	CaseID      id.CaseID     `json:"case_id"`
	CaseNumber  string        `json:"case_number"`
	TenantID    id.TenantID   `json:"tenant_id"`
	Action      models.Action `json:"action"`
	PriorStatus models.Status `json:"prior_status,omitempty"`
	NewStatus   models.Status `json:"new_status"`
	ActorID     id.EmployeeID `json:"actor_id"`
	Seq         int64         `json:"seq"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// Notifier delivers transition events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event. Deployments without a broker use it.
type Noop struct{}

func (Noop) Notify(ctx context.Context, event Event) error { return nil }
func (Noop) Close() error                                  { return nil }
