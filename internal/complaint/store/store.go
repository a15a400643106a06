// Package store persists complaint cases, their append-only audit ledger,
// and their appeal rows. Both implementations provide the same contract:
//
//   - Register atomically allocates the tenant-year case sequence and writes
//     the case together with ledger entry 1.
//   - Transition serializes per case. The callback sees a consistent view
//     (case, open appeal, next ledger seq) and its mutations commit
//     atomically with exactly one ledger entry, or not at all.
//   - Contended cases fail fast with sentinel.ErrLocked rather than queueing.
package store

import (
	"context"
	"time"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
)

// BuildFunc constructs a new case and its registration ledger entry once the
// store has allocated the tenant-year sequence number.
type BuildFunc func(caseSeq int64) (*models.Case, audit.Entry, error)

// Txn is the unit of work handed to Transition callbacks. Case and
// OpenAppeal are private working copies; the store writes them back only
// when the callback returns nil.
type Txn struct {
	// Case is the current row, loaded under the per-case lock.
	Case *models.Case
	// OpenAppeal is the case's single undecided appeal, nil when none.
	OpenAppeal *models.Appeal

	nextSeq    int64
	entry      *audit.Entry
	newAppeal  *models.Appeal
	saveAppeal *models.Appeal
}

// NextSeq returns the ledger sequence reserved for this unit of work.
func (t *Txn) NextSeq() int64 { return t.nextSeq }

// Record stages the single ledger entry this unit of work commits.
func (t *Txn) Record(e audit.Entry) { t.entry = &e }

// InsertAppeal stages a new appeal row.
func (t *Txn) InsertAppeal(a *models.Appeal) { t.newAppeal = a }

// SaveAppeal stages an update to an existing appeal row.
func (t *Txn) SaveAppeal(a *models.Appeal) { t.saveAppeal = a }

// finalize enforces the commit invariants shared by both implementations.
func (t *Txn) finalize() error {
	if t.entry == nil {
		return dErrors.New(dErrors.CodeInternal, "transition committed no ledger entry")
	}
	if t.entry.Seq != t.nextSeq {
		return dErrors.Newf(dErrors.CodeInternal,
			"ledger entry seq %d does not match reserved seq %d", t.entry.Seq, t.nextSeq)
	}
	return t.entry.Validate()
}

// Store is the persistence contract the complaint service depends on.
type Store interface {
	// Register persists a new case and its opening ledger entry atomically.
	Register(ctx context.Context, tenantID id.TenantID, build BuildFunc) (*models.Case, error)

	// Transition runs fn inside the case's unit of work. It returns
	// sentinel.ErrNotFound for unknown cases and sentinel.ErrLocked when
	// another transition holds the case.
	Transition(ctx context.Context, caseID id.CaseID, fn func(*Txn) error) (*models.Case, error)

	GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	ListAudit(ctx context.Context, caseID id.CaseID) ([]audit.Entry, error)
	ListAppeals(ctx context.Context, caseID id.CaseID) ([]models.Appeal, error)
	OpenAppeal(ctx context.Context, caseID id.CaseID) (*models.Appeal, error)

	// ListRebuttalDue returns cases sitting in a rebuttal-wait status whose
	// deadline is at or before the cutoff. The sweep endpoint feeds on it.
	ListRebuttalDue(ctx context.Context, before time.Time) ([]models.Case, error)
}

// rebuttalWaitStatuses are the states ListRebuttalDue scans.
var rebuttalWaitStatuses = []models.Status{
	models.StatusWaitingForRebuttal,
	models.StatusCommitteeWaitingRebuttal,
}
