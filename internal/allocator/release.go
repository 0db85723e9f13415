package allocator

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// Release gives up a hold at (slotID, tier).  Expired holds may be released
// too; anything that is not a HOLD fails with KindNotHeld.
func (a *Allocator) Release(ctx context.Context, slotID uint64, tier int, actor string) (model.Placement, error) {
	switch {
	case slotID == 0:
		return model.Placement{}, newError(KindInvalidInput, "slot_id is required")
	case tier < 1:
		return model.Placement{}, newError(KindInvalidInput, "tier must be at least 1")
	}
	if err := validateActor(actor); err != nil {
		return model.Placement{}, err
	}

	var released model.Placement
	err := a.runSerializable(ctx, "release", func(tx *sqlx.Tx) error {
		now := a.clock()
		_, view, err := a.loadStack(ctx, tx, slotID, now)
		if IsKind(err, KindSlotNotFound) {
			return newError(KindNotHeld, "no hold at slot %d tier %d", slotID, tier)
		}
		if err != nil {
			return err
		}

		p, ok := view.at(tier)
		if !ok || p.Status != model.PlacementHold {
			return newError(KindNotHeld, "no hold at slot %d tier %d", slotID, tier)
		}
		if err := a.placements.ReleaseHoldTx(ctx, tx, p.ID, now); err != nil {
			return err
		}
		if err := a.audit(ctx, tx, model.ActionRelease, actor, slotID, tier, "", now); err != nil {
			return err
		}

		released = p
		released.Status = model.PlacementRemoved
		released.ContainerNo = nil
		released.HoldExpiresAt = nil
		released.RemovedAt = &now
		released.UpdatedAt = now
		return nil
	})
	if err != nil {
		return model.Placement{}, err
	}

	a.logger.Info("hold released", "slot_id", slotID, "tier", tier, "actor", actor)
	return released, nil
}
