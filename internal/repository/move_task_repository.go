package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// MoveTaskRepo stores forklift work items created when a placement is
// confirmed.
type MoveTaskRepo struct {
	db *sqlx.DB
}

// NewMoveTaskRepo returns a MoveTaskRepo bound to the provided database.
func NewMoveTaskRepo(db *sqlx.DB) *MoveTaskRepo { return &MoveTaskRepo{db: db} }

// CreateTx inserts a task and fills in its ID.
func (r *MoveTaskRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *model.MoveTask) error {
	id, err := insertReturningID(ctx, tx,
		`INSERT INTO move_tasks (slot_id, tier, container_no, status, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.SlotID, t.Tier, t.ContainerNo, t.Status, t.CreatedBy, t.CreatedAt.UTC())
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// ListByContainer returns the tasks issued for a container, oldest first.
func (r *MoveTaskRepo) ListByContainer(ctx context.Context, containerNo string) ([]model.MoveTask, error) {
	out := []model.MoveTask{}
	err := selectAll(ctx, r.db, &out,
		`SELECT id, slot_id, tier, container_no, status, created_by, created_at
		 FROM move_tasks WHERE container_no = ? ORDER BY id ASC`, containerNo)
	return out, err
}
