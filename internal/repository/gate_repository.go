package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// Service request workflow statuses the yard cares about.  Other statuses
// belong to the gate subsystem and are left untouched.
const (
	RequestStatusChecked = "CHECKED" // passed gate check, waiting for a yard position
	RequestStatusInYard  = "IN_YARD" // placed in the yard
)

// GateRepo reads the service_requests and repair_tickets tables owned by the
// gate and repair subsystems.  It is the only code that knows their schema.
type GateRepo struct {
	db *sqlx.DB
}

// NewGateRepo returns a GateRepo bound to the provided database.
func NewGateRepo(db *sqlx.DB) *GateRepo { return &GateRepo{db: db} }

type serviceRequestRow struct {
	ContainerType sql.NullString `db:"container_type"`
	Status        string         `db:"status"`
	Inspected     bool           `db:"inspected"`
}

// Eligibility reports whether the container is known to either subsystem and
// whether it has passed inspection.  A container counts as checked when its
// service request is inspected or already CHECKED/IN_YARD, or when a repair
// ticket records a passed inspection.
func (r *GateRepo) Eligibility(ctx context.Context, containerNo string) (model.Eligibility, error) {
	e := model.Eligibility{ContainerNo: containerNo}

	var req serviceRequestRow
	err := get(ctx, r.db, &req,
		`SELECT container_type, status, inspected FROM service_requests WHERE container_no = ?`, containerNo)
	switch {
	case err == nil:
		e.Exists = true
		e.RequestStatus = req.Status
		e.ContainerType = req.ContainerType.String
		e.Checked = req.Inspected || req.Status == RequestStatusChecked || req.Status == RequestStatusInYard
	case !errors.Is(err, ErrNotFound):
		return e, err
	}

	var tickets, passed int
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`SELECT COUNT(*), COUNT(CASE WHEN inspection_passed THEN 1 END) FROM repair_tickets WHERE container_no = ?`),
		containerNo).Scan(&tickets, &passed); err != nil {
		return e, err
	}
	if tickets > 0 {
		e.Exists = true
	}
	if passed > 0 {
		e.Checked = true
	}
	return e, nil
}

// AdvanceToPlacedTx moves the container's service request from CHECKED to
// IN_YARD.  It is idempotent: a request in any other status, or no request
// at all, is left as is.
func (r *GateRepo) AdvanceToPlacedTx(ctx context.Context, tx *sqlx.Tx, containerNo string, now time.Time) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE service_requests SET status = ?, updated_at = ? WHERE container_no = ? AND status = ?`),
		RequestStatusInYard, now.UTC(), containerNo, RequestStatusChecked)
	return err
}

// UpsertServiceRequest records a service request.  The gate subsystem owns
// this table; the method exists for seeding and tests.
func (r *GateRepo) UpsertServiceRequest(ctx context.Context, containerNo, containerType, status string, inspected bool) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE service_requests SET container_type = ?, status = ?, inspected = ?, updated_at = ? WHERE container_no = ?`),
		nullString(containerType), status, inspected, now, containerNo)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO service_requests (container_no, container_type, status, inspected, updated_at) VALUES (?, ?, ?, ?, ?)`),
		containerNo, nullString(containerType), status, inspected, now)
	return err
}

// AddRepairTicket records a repair ticket.  Seeding and tests only.
func (r *GateRepo) AddRepairTicket(ctx context.Context, containerNo, status string, inspectionPassed bool) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO repair_tickets (container_no, status, inspection_passed, updated_at) VALUES (?, ?, ?, ?)`),
		containerNo, status, inspectionPassed, time.Now().UTC())
	return err
}

// RequestStatus returns the workflow status of the container's service
// request, or ErrNotFound.
func (r *GateRepo) RequestStatus(ctx context.Context, containerNo string) (string, error) {
	var status string
	err := get(ctx, r.db, &status, `SELECT status FROM service_requests WHERE container_no = ?`, containerNo)
	return status, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
