// Package directory exposes the organizational reference data the workflow
// consults: discipline committees and their placement, and employee
// existence checks. The production deployment syncs this data from the HR
// system of record; the service only ever reads it.
package directory

import (
	"context"
	"sync"

	id "disciplina/pkg/domain"
	"disciplina/pkg/platform/sentinel"
)

// Committee is one discipline committee. CenterID is nil for a
// headquarters-level committee.
type Committee struct {
	ID       id.CommitteeID
	Name     string
	CenterID *id.CenterID
	Active   bool
}

// IsHeadquarters reports whether the committee sits at headquarters level.
func (c Committee) IsHeadquarters() bool {
	return c.CenterID == nil || c.CenterID.IsNil()
}

// CommitteeDirectory resolves committee references.
type CommitteeDirectory interface {
	// FindCommittee returns sentinel.ErrNotFound for unknown or inactive
	// committees.
	FindCommittee(ctx context.Context, committeeID id.CommitteeID) (*Committee, error)
}

// EmployeeDirectory answers existence checks for employee references.
type EmployeeDirectory interface {
	EmployeeExists(ctx context.Context, employeeID id.EmployeeID) (bool, error)
}

// InMemory serves both directories from process memory. It backs tests and
// standalone deployments seeded at startup.
type InMemory struct {
	mu         sync.RWMutex
	committees map[id.CommitteeID]Committee
	employees  map[id.EmployeeID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		committees: make(map[id.CommitteeID]Committee),
		employees:  make(map[id.EmployeeID]struct{}),
	}
}

// AddCommittee registers or replaces a committee.
func (d *InMemory) AddCommittee(c Committee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.committees[c.ID] = c
}

// AddEmployee registers an employee reference.
func (d *InMemory) AddEmployee(employeeID id.EmployeeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[employeeID] = struct{}{}
}

func (d *InMemory) FindCommittee(ctx context.Context, committeeID id.CommitteeID) (*Committee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.committees[committeeID]
	if !ok || !c.Active {
		return nil, sentinel.ErrNotFound
	}
	if c.CenterID != nil {
		v := *c.CenterID
		c.CenterID = &v
	}
	return &c, nil
}

func (d *InMemory) EmployeeExists(ctx context.Context, employeeID id.EmployeeID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.employees[employeeID]
	return ok, nil
}

// Permissive answers yes to every employee lookup. Deployments without an
// HR feed use it so registration does not reject unknown references.
type Permissive struct{}

func (Permissive) EmployeeExists(ctx context.Context, employeeID id.EmployeeID) (bool, error) {
	return true, nil
}
