package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// YardRepo provides access to the yard layout: yards, blocks and slots.
// Layout is normally loaded by an external import; the create methods exist
// for seeding and tests.
type YardRepo struct {
	db *sqlx.DB
}

// NewYardRepo returns a YardRepo bound to the provided database.
func NewYardRepo(db *sqlx.DB) *YardRepo { return &YardRepo{db: db} }

// CreateYard inserts a yard and returns it with its generated ID.
func (r *YardRepo) CreateYard(ctx context.Context, name string) (model.Yard, error) {
	y := model.Yard{Name: name, CreatedAt: time.Now().UTC()}
	id, err := insertReturningID(ctx, r.db,
		`INSERT INTO yards (name, created_at) VALUES (?, ?)`, y.Name, y.CreatedAt)
	if err != nil {
		return model.Yard{}, err
	}
	y.ID = id
	return y, nil
}

// CreateBlock inserts a block into a yard.
func (r *YardRepo) CreateBlock(ctx context.Context, yardID uint64, code string) (model.Block, error) {
	b := model.Block{YardID: yardID, Code: code, CreatedAt: time.Now().UTC()}
	id, err := insertReturningID(ctx, r.db,
		`INSERT INTO blocks (yard_id, code, created_at) VALUES (?, ?, ?)`, b.YardID, b.Code, b.CreatedAt)
	if err != nil {
		return model.Block{}, err
	}
	b.ID = id
	return b, nil
}

// CreateSlot inserts a slot.  ID and CreatedAt are filled in on success.
func (r *YardRepo) CreateSlot(ctx context.Context, s *model.Slot) error {
	s.CreatedAt = time.Now().UTC()
	id, err := insertReturningID(ctx, r.db,
		`INSERT INTO slots (block_id, code, tier_capacity, near_gate, avoid_main, is_odd, size_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.BlockID, s.Code, s.TierCapacity, s.NearGate, s.AvoidMain, s.IsOdd, s.SizeType, s.CreatedAt)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

const slotColumns = `s.id, s.block_id, s.code, s.tier_capacity, s.near_gate, s.avoid_main, s.is_odd, s.size_type, s.created_at`

// GetSlot returns a slot by ID or ErrNotFound.
func (r *YardRepo) GetSlot(ctx context.Context, id uint64) (model.Slot, error) {
	return getSlot(ctx, r.db, id)
}

// GetSlotTx is GetSlot inside the caller's transaction.
func (r *YardRepo) GetSlotTx(ctx context.Context, tx *sqlx.Tx, id uint64) (model.Slot, error) {
	return getSlot(ctx, tx, id)
}

func getSlot(ctx context.Context, ex sqlx.ExtContext, id uint64) (model.Slot, error) {
	var s model.Slot
	err := get(ctx, ex, &s, `SELECT `+slotColumns+` FROM slots s WHERE s.id = ?`, id)
	return s, err
}

// ListEmptySlots returns every slot with no OCCUPIED tier and no HOLD that
// is still active at now, together with its block and yard names.
func (r *YardRepo) ListEmptySlots(ctx context.Context, now time.Time) ([]model.SlotCandidate, error) {
	const q = `SELECT ` + slotColumns + `, b.code AS block_code, y.id AS yard_id, y.name AS yard_name
		FROM slots s
		JOIN blocks b ON b.id = s.block_id
		JOIN yards y ON y.id = b.yard_id
		WHERE NOT EXISTS (
			SELECT 1 FROM placements p
			WHERE p.slot_id = s.id
			  AND (p.status = 'OCCUPIED'
			       OR (p.status = 'HOLD' AND (p.hold_expires_at IS NULL OR p.hold_expires_at > ?)))
		)
		ORDER BY s.id`
	var out []model.SlotCandidate
	if err := selectAll(ctx, r.db, &out, q, now.UTC()); err != nil {
		return nil, err
	}
	return out, nil
}
