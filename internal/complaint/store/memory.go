package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	"disciplina/pkg/platform/sentinel"
)

// InMemory keeps full state in process. It backs unit tests and local
// development; the contended-case behavior (TryLock, fail fast) mirrors the
// postgres NOWAIT semantics.
type InMemory struct {
	mu      sync.Mutex
	cases   map[id.CaseID]*models.Case
	ledgers map[id.CaseID][]audit.Entry
	appeals map[id.CaseID][]models.Appeal
	locks   map[id.CaseID]*sync.Mutex
	seqs    map[string]int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:   make(map[id.CaseID]*models.Case),
		ledgers: make(map[id.CaseID][]audit.Entry),
		appeals: make(map[id.CaseID][]models.Appeal),
		locks:   make(map[id.CaseID]*sync.Mutex),
		seqs:    make(map[string]int64),
	}
}

func (s *InMemory) Register(ctx context.Context, tenantID id.TenantID, build BuildFunc) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seqKey := fmt.Sprintf("%s:%d", tenantID, time.Now().UTC().Year())
	seq := s.seqs[seqKey] + 1

	c, entry, err := build(seq)
	if err != nil {
		return nil, err
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if _, exists := s.cases[c.ID]; exists {
		return nil, sentinel.ErrConflict
	}

	s.seqs[seqKey] = seq
	stored := c.Snapshot()
	s.cases[c.ID] = &stored
	s.ledgers[c.ID] = []audit.Entry{entry}
	s.locks[c.ID] = &sync.Mutex{}

	snap := stored.Snapshot()
	return &snap, nil
}

func (s *InMemory) Transition(ctx context.Context, caseID id.CaseID, fn func(*Txn) error) (*models.Case, error) {
	s.mu.Lock()
	stored, ok := s.cases[caseID]
	if !ok {
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	lock := s.locks[caseID]
	s.mu.Unlock()

	if !lock.TryLock() {
		return nil, sentinel.ErrLocked
	}
	defer lock.Unlock()

	// The callback works on copies; stored state changes only on success.
	s.mu.Lock()
	work := stored.Snapshot()
	open := s.openAppealLocked(caseID)
	nextSeq := int64(len(s.ledgers[caseID])) + 1
	s.mu.Unlock()

	txn := &Txn{Case: &work, OpenAppeal: open, nextSeq: nextSeq}
	if err := fn(txn); err != nil {
		return nil, err
	}
	if err := txn.finalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored.Version != work.Version-1 {
		return nil, sentinel.ErrVersionMismatch
	}
	committed := work.Snapshot()
	s.cases[caseID] = &committed
	s.ledgers[caseID] = append(s.ledgers[caseID], *txn.entry)
	if txn.newAppeal != nil {
		s.appeals[caseID] = append(s.appeals[caseID], *txn.newAppeal)
	}
	if txn.saveAppeal != nil {
		rows := s.appeals[caseID]
		for i := range rows {
			if rows[i].ID == txn.saveAppeal.ID {
				rows[i] = *txn.saveAppeal
			}
		}
	}

	snap := committed.Snapshot()
	return &snap, nil
}

func (s *InMemory) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	snap := c.Snapshot()
	return &snap, nil
}

func (s *InMemory) ListAudit(ctx context.Context, caseID id.CaseID) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	entries := make([]audit.Entry, len(s.ledgers[caseID]))
	copy(entries, s.ledgers[caseID])
	return entries, nil
}

func (s *InMemory) ListAppeals(ctx context.Context, caseID id.CaseID) ([]models.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	rows := make([]models.Appeal, len(s.appeals[caseID]))
	copy(rows, s.appeals[caseID])
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubmittedAt.Before(rows[j].SubmittedAt) })
	return rows, nil
}

func (s *InMemory) OpenAppeal(ctx context.Context, caseID id.CaseID) (*models.Appeal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[caseID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.openAppealLocked(caseID), nil
}

func (s *InMemory) ListRebuttalDue(ctx context.Context, before time.Time) ([]models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.Case
	for _, c := range s.cases {
		if !statusWaitsForRebuttal(c.Status) || c.RebuttalDeadline == nil {
			continue
		}
		if !c.RebuttalDeadline.After(before) {
			due = append(due, c.Snapshot())
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RebuttalDeadline.Before(*due[j].RebuttalDeadline) })
	return due, nil
}

func (s *InMemory) openAppealLocked(caseID id.CaseID) *models.Appeal {
	for _, a := range s.appeals[caseID] {
		if a.IsOpen() {
			cp := a
			return &cp
		}
	}
	return nil
}

func statusWaitsForRebuttal(status models.Status) bool {
	for _, ws := range rebuttalWaitStatuses {
		if status == ws {
			return true
		}
	}
	return false
}
