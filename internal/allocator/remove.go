package allocator

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// Remove takes a container off its stack.  Only the top of a stack can be
// removed: nothing above may be OCCUPIED or actively held.
func (a *Allocator) Remove(ctx context.Context, containerNo, actor string) (model.Placement, error) {
	containerNo = NormalizeContainerNo(containerNo)
	if containerNo == "" {
		return model.Placement{}, newError(KindInvalidInput, "container_no is required")
	}
	if err := validateActor(actor); err != nil {
		return model.Placement{}, err
	}

	var removed model.Placement
	err := a.runSerializable(ctx, "remove", func(tx *sqlx.Tx) error {
		now := a.clock()
		p, err := a.placements.FindOccupiedByContainerTx(ctx, tx, containerNo)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindNotOccupied, "container %s is not in the yard", containerNo)
		}
		if err != nil {
			return err
		}

		slot, view, err := a.loadStack(ctx, tx, p.SlotID, now)
		if err != nil {
			return err
		}
		if t, ok := view.liveAbove(p.Tier); ok {
			return newError(KindStackOrderViolation, "container %s is under tier %d of slot %s",
				containerNo, t, slot.Code)
		}

		if err := a.placements.VacateTx(ctx, tx, p.ID, now); err != nil {
			return err
		}
		if err := a.audit(ctx, tx, model.ActionRemove, actor, p.SlotID, p.Tier, containerNo, now); err != nil {
			return err
		}

		removed = p
		removed.Status = model.PlacementRemoved
		removed.RemovedAt = &now
		removed.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Placement{}, err
	}

	a.logger.Info("container removed", "container", containerNo, "slot_id", removed.SlotID, "tier", removed.Tier, "actor", actor)
	return removed, nil
}
