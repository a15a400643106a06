package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	"disciplina/pkg/platform/sentinel"
)

// pqLockNotAvailable is raised by FOR UPDATE NOWAIT when another transaction
// holds the row.
const pqLockNotAvailable = "55P03"

const defaultTxTimeout = 5 * time.Second

// Postgres persists cases, the audit ledger, and appeals. Per-case
// serialization rides on SELECT ... FOR UPDATE NOWAIT over the case row;
// every ledger append happens inside the same transaction as the status
// update it records.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, timeout: defaultTxTimeout}
}

const caseColumns = `id, tenant_id, case_number, article, offense_code, decision_authority,
	accused_employee_id, complainant_kind, complainant_employee_id, complainant_name,
	summary, summary_alt, incident_date, incident_location, registered_at,
	status, assigned_committee_id, center_id, rebuttal_deadline, rebuttal,
	finding, finding_reason, decision_date, punishment_percentage, punishment_description,
	closed_at, closure_reason, version, created_at, updated_at`

func (s *Postgres) Register(ctx context.Context, tenantID id.TenantID, build BuildFunc) (*models.Case, error) {
	var created *models.Case
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO case_sequences (tenant_id, year, seq)
			VALUES ($1, EXTRACT(YEAR FROM now())::int, 1)
			ON CONFLICT (tenant_id, year) DO UPDATE SET seq = case_sequences.seq + 1
			RETURNING seq`,
			uuid.UUID(tenantID)).Scan(&seq)
		if err != nil {
			return fmt.Errorf("allocate case sequence: %w", err)
		}

		c, entry, err := build(seq)
		if err != nil {
			return err
		}
		if err := entry.Validate(); err != nil {
			return err
		}
		if err := s.insertCase(ctx, tx, c); err != nil {
			return err
		}
		if err := s.insertAudit(ctx, tx, entry); err != nil {
			return err
		}
		snap := c.Snapshot()
		created = &snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Postgres) Transition(ctx context.Context, caseID id.CaseID, fn func(*Txn) error) (*models.Case, error) {
	var committed *models.Case
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		c, err := s.lockCase(ctx, tx, caseID)
		if err != nil {
			return err
		}
		loadedVersion := c.Version

		open, err := s.openAppealTx(ctx, tx, caseID)
		if err != nil {
			return err
		}

		// The ledger max is stable for the duration of the case row lock.
		var nextSeq int64
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM case_audit WHERE case_id = $1`,
			uuid.UUID(caseID)).Scan(&nextSeq)
		if err != nil {
			return fmt.Errorf("reserve ledger seq: %w", err)
		}

		txn := &Txn{Case: c, OpenAppeal: open, nextSeq: nextSeq}
		if err := fn(txn); err != nil {
			return err
		}
		if err := txn.finalize(); err != nil {
			return err
		}

		if err := s.updateCase(ctx, tx, c, loadedVersion); err != nil {
			return err
		}
		if err := s.insertAudit(ctx, tx, *txn.entry); err != nil {
			return err
		}
		if txn.newAppeal != nil {
			if err := s.insertAppeal(ctx, tx, txn.newAppeal); err != nil {
				return err
			}
		}
		if txn.saveAppeal != nil {
			if err := s.updateAppeal(ctx, tx, txn.saveAppeal); err != nil {
				return err
			}
		}

		snap := c.Snapshot()
		committed = &snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *Postgres) GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, uuid.UUID(caseID))
	return scanCase(row)
}

func (s *Postgres) ListAudit(ctx context.Context, caseID id.CaseID) ([]audit.Entry, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, seq, action, actor_id, prior_status, new_status, payload, request_id, recorded_at
		FROM case_audit WHERE case_id = $1 ORDER BY seq`,
		uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			caseUID uuid.UUID
			actor   uuid.UUID
			prior   sql.NullString
			payload []byte
			reqID   sql.NullString
		)
		if err := rows.Scan(&caseUID, &e.Seq, &e.Action, &actor, &prior, &e.NewStatus, &payload, &reqID, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CaseID = id.CaseID(caseUID)
		e.ActorID = id.EmployeeID(actor)
		e.PriorStatus = models.Status(prior.String)
		e.RequestID = reqID.String
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Postgres) ListAppeals(ctx context.Context, caseID id.CaseID) ([]models.Appeal, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, appealSelect+` WHERE case_id = $1 ORDER BY submitted_at`,
		uuid.UUID(caseID))
	if err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	defer rows.Close()

	var appeals []models.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		appeals = append(appeals, *a)
	}
	return appeals, rows.Err()
}

func (s *Postgres) OpenAppeal(ctx context.Context, caseID id.CaseID) (*models.Appeal, error) {
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, appealSelect+` WHERE case_id = $1 AND decision IS NULL`,
		uuid.UUID(caseID))
	a, err := scanAppeal(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (s *Postgres) ListRebuttalDue(ctx context.Context, before time.Time) ([]models.Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE status = ANY($1) AND rebuttal_deadline IS NOT NULL AND rebuttal_deadline <= $2
		ORDER BY rebuttal_deadline`,
		pq.Array(statusStrings(rebuttalWaitStatuses)), before)
	if err != nil {
		return nil, fmt.Errorf("list rebuttal due: %w", err)
	}
	defer rows.Close()

	var due []models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *c)
	}
	return due, rows.Err()
}

func (s *Postgres) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Postgres) lockCase(ctx context.Context, tx *sql.Tx, caseID id.CaseID) (*models.Case, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1 FOR UPDATE NOWAIT`, uuid.UUID(caseID))
	c, err := scanCase(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable {
			return nil, sentinel.ErrLocked
		}
		return nil, err
	}
	return c, nil
}

func (s *Postgres) insertCase(ctx context.Context, tx *sql.Tx, c *models.Case) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)`,
		uuid.UUID(c.ID), uuid.UUID(c.TenantID), c.CaseNumber,
		string(c.Article), c.OffenseCode, string(c.DecisionAuthority),
		uuid.UUID(c.AccusedEmployeeID), string(c.Complainant.Kind),
		nullEmployeeID(c.Complainant.EmployeeID), nullString(c.Complainant.Name),
		c.Summary, nullString(c.SummaryAlt), c.IncidentDate, nullString(c.IncidentLocation), c.RegisteredAt,
		string(c.Status), nullCommitteeID(c.AssignedCommitteeID), nullCenterID(c.CenterID),
		nullTime(c.RebuttalDeadline), nullString(c.Rebuttal),
		nullString(string(c.Finding)), nullString(c.FindingReason),
		nullTime(c.DecisionDate), nullFloat(c.PunishmentPercentage), nullString(c.PunishmentDescription),
		nullTime(c.ClosedAt), nullString(c.ClosureReason),
		c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

func (s *Postgres) updateCase(ctx context.Context, tx *sql.Tx, c *models.Case, loadedVersion int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE cases SET
			status = $1, assigned_committee_id = $2, center_id = $3,
			rebuttal_deadline = $4, rebuttal = $5,
			finding = $6, finding_reason = $7,
			decision_date = $8, punishment_percentage = $9, punishment_description = $10,
			closed_at = $11, closure_reason = $12,
			version = $13, updated_at = $14
		WHERE id = $15 AND version = $16`,
		string(c.Status), nullCommitteeID(c.AssignedCommitteeID), nullCenterID(c.CenterID),
		nullTime(c.RebuttalDeadline), nullString(c.Rebuttal),
		nullString(string(c.Finding)), nullString(c.FindingReason),
		nullTime(c.DecisionDate), nullFloat(c.PunishmentPercentage), nullString(c.PunishmentDescription),
		nullTime(c.ClosedAt), nullString(c.ClosureReason),
		c.Version, c.UpdatedAt,
		uuid.UUID(c.ID), loadedVersion)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if n == 0 {
		return sentinel.ErrVersionMismatch
	}
	return nil
}

func (s *Postgres) insertAudit(ctx context.Context, tx *sql.Tx, e audit.Entry) error {
	var payload []byte
	if len(e.Payload) > 0 {
		var err error
		payload, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encode audit payload: %w", err)
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO case_audit (case_id, seq, action, actor_id, prior_status, new_status, payload, request_id, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.UUID(e.CaseID), e.Seq, string(e.Action), uuid.UUID(e.ActorID),
		nullString(string(e.PriorStatus)), string(e.NewStatus),
		payload, nullString(e.RequestID), e.RecordedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

const appealSelect = `
	SELECT id, case_id, reviewer_employee_id, submitted_at, reason,
	       decision, decided_at, decision_reason, new_punishment
	FROM case_appeals`

func (s *Postgres) insertAppeal(ctx context.Context, tx *sql.Tx, a *models.Appeal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO case_appeals (id, case_id, reviewer_employee_id, submitted_at, reason,
			decision, decided_at, decision_reason, new_punishment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.UUID(a.ID), uuid.UUID(a.CaseID), uuid.UUID(a.ReviewerEmployeeID),
		a.SubmittedAt, a.Reason,
		nullAppealDecision(a.Decision), nullTime(a.DecidedAt),
		nullString(a.DecisionReason), nullString(a.NewPunishment))
	if err != nil {
		return fmt.Errorf("insert appeal: %w", err)
	}
	return nil
}

func (s *Postgres) updateAppeal(ctx context.Context, tx *sql.Tx, a *models.Appeal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE case_appeals SET decision = $1, decided_at = $2, decision_reason = $3, new_punishment = $4
		WHERE id = $5`,
		nullAppealDecision(a.Decision), nullTime(a.DecidedAt),
		nullString(a.DecisionReason), nullString(a.NewPunishment),
		uuid.UUID(a.ID))
	if err != nil {
		return fmt.Errorf("update appeal: %w", err)
	}
	return nil
}

func (s *Postgres) openAppealTx(ctx context.Context, tx *sql.Tx, caseID id.CaseID) (*models.Appeal, error) {
	row := tx.QueryRowContext(ctx, appealSelect+` WHERE case_id = $1 AND decision IS NULL`,
		uuid.UUID(caseID))
	a, err := scanAppeal(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c                models.Case
		caseUID          uuid.UUID
		tenantUID        uuid.UUID
		accusedUID       uuid.UUID
		complainantUID   uuid.NullUUID
		complainantName  sql.NullString
		summaryAlt       sql.NullString
		incidentLocation sql.NullString
		committeeUID     uuid.NullUUID
		centerUID        uuid.NullUUID
		rebuttalDeadline sql.NullTime
		rebuttal         sql.NullString
		finding          sql.NullString
		findingReason    sql.NullString
		decisionDate     sql.NullTime
		punishmentPct    sql.NullFloat64
		punishmentDesc   sql.NullString
		closedAt         sql.NullTime
		closureReason    sql.NullString
	)
	err := row.Scan(&caseUID, &tenantUID, &c.CaseNumber,
		&c.Article, &c.OffenseCode, &c.DecisionAuthority,
		&accusedUID, &c.Complainant.Kind, &complainantUID, &complainantName,
		&c.Summary, &summaryAlt, &c.IncidentDate, &incidentLocation, &c.RegisteredAt,
		&c.Status, &committeeUID, &centerUID, &rebuttalDeadline, &rebuttal,
		&finding, &findingReason, &decisionDate, &punishmentPct, &punishmentDesc,
		&closedAt, &closureReason, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan case: %w", err)
	}

	c.ID = id.CaseID(caseUID)
	c.TenantID = id.TenantID(tenantUID)
	c.AccusedEmployeeID = id.EmployeeID(accusedUID)
	if complainantUID.Valid {
		v := id.EmployeeID(complainantUID.UUID)
		c.Complainant.EmployeeID = &v
	}
	c.Complainant.Name = complainantName.String
	c.SummaryAlt = summaryAlt.String
	c.IncidentLocation = incidentLocation.String
	if committeeUID.Valid {
		v := id.CommitteeID(committeeUID.UUID)
		c.AssignedCommitteeID = &v
	}
	if centerUID.Valid {
		v := id.CenterID(centerUID.UUID)
		c.CenterID = &v
	}
	if rebuttalDeadline.Valid {
		t := rebuttalDeadline.Time
		c.RebuttalDeadline = &t
	}
	c.Rebuttal = rebuttal.String
	c.Finding = models.Finding(finding.String)
	c.FindingReason = findingReason.String
	if decisionDate.Valid {
		t := decisionDate.Time
		c.DecisionDate = &t
	}
	if punishmentPct.Valid {
		v := punishmentPct.Float64
		c.PunishmentPercentage = &v
	}
	c.PunishmentDescription = punishmentDesc.String
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	c.ClosureReason = closureReason.String
	return &c, nil
}

func scanAppeal(row rowScanner) (*models.Appeal, error) {
	var (
		a              models.Appeal
		appealUID      uuid.UUID
		caseUID        uuid.UUID
		reviewerUID    uuid.UUID
		decision       sql.NullString
		decidedAt      sql.NullTime
		decisionReason sql.NullString
		newPunishment  sql.NullString
	)
	err := row.Scan(&appealUID, &caseUID, &reviewerUID, &a.SubmittedAt, &a.Reason,
		&decision, &decidedAt, &decisionReason, &newPunishment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan appeal: %w", err)
	}
	a.ID = id.AppealID(appealUID)
	a.CaseID = id.CaseID(caseUID)
	a.ReviewerEmployeeID = id.EmployeeID(reviewerUID)
	if decision.Valid {
		d := models.AppealDecision(decision.String)
		a.Decision = &d
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		a.DecidedAt = &t
	}
	a.DecisionReason = decisionReason.String
	a.NewPunishment = newPunishment.String
	return &a, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullEmployeeID(v *id.EmployeeID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullCommitteeID(v *id.CommitteeID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullCenterID(v *id.CenterID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullAppealDecision(d *models.AppealDecision) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*d), Valid: true}
}
