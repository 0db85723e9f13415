package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// PlacementRepo provides data access to the placements table.  There is at
// most one row per (slot_id, tier); rows cycle through HOLD, OCCUPIED and
// REMOVED and are reused rather than deleted.  All timestamps are UTC and
// every expiry comparison takes an explicit now so callers decide the clock.
type PlacementRepo struct {
	db *sqlx.DB
}

// NewPlacementRepo returns a new PlacementRepo bound to the provided database.
func NewPlacementRepo(db *sqlx.DB) *PlacementRepo { return &PlacementRepo{db: db} }

const placementColumns = `id, slot_id, tier, status, container_no, hold_expires_at, placed_at, removed_at,
	created_by, created_at, updated_at`

// ListBySlot returns all placements of a slot ordered by tier ascending.
func (r *PlacementRepo) ListBySlot(ctx context.Context, slotID uint64) ([]model.Placement, error) {
	return listBySlot(ctx, r.db, slotID)
}

// ListBySlotTx is ListBySlot inside the caller's transaction.  The allocator
// evaluates every stacking rule against this snapshot.
func (r *PlacementRepo) ListBySlotTx(ctx context.Context, tx *sqlx.Tx, slotID uint64) ([]model.Placement, error) {
	return listBySlot(ctx, tx, slotID)
}

func listBySlot(ctx context.Context, ex sqlx.ExtContext, slotID uint64) ([]model.Placement, error) {
	out := []model.Placement{}
	err := selectAll(ctx, ex, &out,
		`SELECT `+placementColumns+` FROM placements WHERE slot_id = ? ORDER BY tier ASC`, slotID)
	return out, err
}

// FindOccupiedByContainer returns the OCCUPIED placement holding the
// container, or ErrNotFound.
func (r *PlacementRepo) FindOccupiedByContainer(ctx context.Context, containerNo string) (model.Placement, error) {
	return findOccupiedByContainer(ctx, r.db, containerNo)
}

// FindOccupiedByContainerTx is FindOccupiedByContainer inside the caller's transaction.
func (r *PlacementRepo) FindOccupiedByContainerTx(ctx context.Context, tx *sqlx.Tx, containerNo string) (model.Placement, error) {
	return findOccupiedByContainer(ctx, tx, containerNo)
}

func findOccupiedByContainer(ctx context.Context, ex sqlx.ExtContext, containerNo string) (model.Placement, error) {
	var p model.Placement
	err := get(ctx, ex, &p,
		`SELECT `+placementColumns+` FROM placements
		 WHERE container_no = ? AND status = 'OCCUPIED'
		 ORDER BY id ASC LIMIT 1`, containerNo)
	return p, err
}

// InsertHoldTx creates a new HOLD row at (slotID, tier).  A concurrent
// insert of the same position fails with a unique violation.
func (r *PlacementRepo) InsertHoldTx(ctx context.Context, tx *sqlx.Tx, slotID uint64, tier int, expiresAt time.Time, actor string, now time.Time) (uint64, error) {
	return insertReturningID(ctx, tx,
		`INSERT INTO placements (slot_id, tier, status, container_no, hold_expires_at, placed_at, removed_at,
		 created_by, created_at, updated_at)
		 VALUES (?, ?, 'HOLD', NULL, ?, NULL, NULL, ?, ?, ?)`,
		slotID, tier, expiresAt.UTC(), actor, now.UTC(), now.UTC())
}

// ReholdTx turns an existing row that is REMOVED or an expired HOLD back into
// a fresh HOLD.  The row must still be in one of the statuses the caller
// observed; otherwise ErrConflict is returned.
func (r *PlacementRepo) ReholdTx(ctx context.Context, tx *sqlx.Tx, id uint64, prevStatus string, expiresAt time.Time, actor string, now time.Time) error {
	return execOne(ctx, tx,
		`UPDATE placements
		 SET status = 'HOLD', container_no = NULL, hold_expires_at = ?, placed_at = NULL, removed_at = NULL,
		     created_by = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		expiresAt.UTC(), actor, now.UTC(), id, prevStatus)
}

// MarkOccupiedTx converts a HOLD into an OCCUPIED placement of containerNo.
func (r *PlacementRepo) MarkOccupiedTx(ctx context.Context, tx *sqlx.Tx, id uint64, containerNo string, now time.Time) error {
	return execOne(ctx, tx,
		`UPDATE placements
		 SET status = 'OCCUPIED', container_no = ?, hold_expires_at = NULL, placed_at = ?, removed_at = NULL,
		     updated_at = ?
		 WHERE id = ? AND status = 'HOLD'`,
		containerNo, now.UTC(), now.UTC(), id)
}

// ReleaseHoldTx marks a HOLD as REMOVED and clears its container and expiry.
func (r *PlacementRepo) ReleaseHoldTx(ctx context.Context, tx *sqlx.Tx, id uint64, now time.Time) error {
	return execOne(ctx, tx,
		`UPDATE placements
		 SET status = 'REMOVED', container_no = NULL, hold_expires_at = NULL, removed_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'HOLD'`,
		now.UTC(), now.UTC(), id)
}

// VacateTx marks an OCCUPIED placement REMOVED.  The container number stays
// on the row as last-known history until the position is held again.
func (r *PlacementRepo) VacateTx(ctx context.Context, tx *sqlx.Tx, id uint64, now time.Time) error {
	return execOne(ctx, tx,
		`UPDATE placements
		 SET status = 'REMOVED', removed_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'OCCUPIED'`,
		now.UTC(), now.UTC(), id)
}

// ReapExpiredHolds marks every HOLD whose expiry is at or before now as
// REMOVED and returns how many rows changed.
func (r *PlacementRepo) ReapExpiredHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE placements
		 SET status = 'REMOVED', hold_expires_at = NULL, removed_at = ?, updated_at = ?
		 WHERE status = 'HOLD' AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?`),
		now.UTC(), now.UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StackMap returns one summary row per slot across all yards.  Holds count
// only while active at now.
func (r *PlacementRepo) StackMap(ctx context.Context, now time.Time) ([]model.SlotSummary, error) {
	const q = `SELECT y.id AS yard_id, y.name AS yard_name, b.id AS block_id, b.code AS block_code,
			s.id AS slot_id, s.code AS slot_code, s.tier_capacity,
			COUNT(CASE WHEN p.status = 'OCCUPIED' THEN 1 END) AS occupied_count,
			COUNT(CASE WHEN p.status = 'HOLD' AND (p.hold_expires_at IS NULL OR p.hold_expires_at > ?) THEN 1 END) AS hold_count
		FROM slots s
		JOIN blocks b ON b.id = s.block_id
		JOIN yards y ON y.id = b.yard_id
		LEFT JOIN placements p ON p.slot_id = s.id
		GROUP BY y.id, y.name, b.id, b.code, s.id, s.code, s.tier_capacity
		ORDER BY y.name, b.code, s.code`
	out := []model.SlotSummary{}
	err := selectAll(ctx, r.db, &out, q, now.UTC())
	return out, err
}

// Locate returns where a container currently is.  Only HOLD and OCCUPIED
// rows are considered; ErrNotFound means it is not in the yard.
func (r *PlacementRepo) Locate(ctx context.Context, containerNo string) (model.ContainerLocation, error) {
	const q = `SELECT p.container_no, p.slot_id, s.code AS slot_code, b.code AS block_code, y.name AS yard_name,
			p.tier, p.status, p.updated_at
		FROM placements p
		JOIN slots s ON s.id = p.slot_id
		JOIN blocks b ON b.id = s.block_id
		JOIN yards y ON y.id = b.yard_id
		WHERE p.container_no = ? AND p.status IN ('HOLD', 'OCCUPIED')
		ORDER BY p.id ASC
		LIMIT 1`
	var loc model.ContainerLocation
	err := get(ctx, r.db, &loc, q, containerNo)
	return loc, err
}
