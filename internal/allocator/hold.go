package allocator

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
)

// Hold reserves the next free tier of a slot for the hold TTL.
//
// The only tier that can be held is one above the highest OCCUPIED tier.  When
// tier is non-nil it must name exactly that tier.  An existing row at the
// position is reused when it is REMOVED or an expired HOLD.
func (a *Allocator) Hold(ctx context.Context, slotID uint64, tier *int, actor string) (model.Placement, error) {
	if slotID == 0 {
		return model.Placement{}, newError(KindInvalidInput, "slot_id is required")
	}
	if err := validateActor(actor); err != nil {
		return model.Placement{}, err
	}

	var held model.Placement
	err := a.runSerializable(ctx, "hold", func(tx *sqlx.Tx) error {
		now := a.clock()
		slot, view, err := a.loadStack(ctx, tx, slotID, now)
		if err != nil {
			return err
		}

		allowed := view.nextTier()
		if allowed > slot.TierCapacity {
			return newError(KindStackCapacityExceeded, "slot %s is full (%d of %d tiers occupied)",
				slot.Code, allowed-1, slot.TierCapacity)
		}
		if tier != nil && *tier != allowed {
			return newError(KindInvalidTier, "tier %d cannot be held on slot %s; next tier is %d",
				*tier, slot.Code, allowed)
		}

		existing, exists := view.at(allowed)
		if exists && existing.IsOccupied() {
			return newError(KindTierOccupied, "tier %d of slot %s is occupied", allowed, slot.Code)
		}
		if t, ok := view.liveAtOrAbove(allowed); ok {
			return newError(KindTierAlreadyHeld, "tier %d of slot %s is already held", t, slot.Code)
		}

		expires := now.Add(a.cfg.HoldTTL)
		held = model.Placement{
			SlotID:        slotID,
			Tier:          allowed,
			Status:        model.PlacementHold,
			HoldExpiresAt: &expires,
			CreatedBy:     actor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if exists {
			if err := a.placements.ReholdTx(ctx, tx, existing.ID, existing.Status, expires, actor, now); err != nil {
				return err
			}
			held.ID = existing.ID
			held.CreatedAt = existing.CreatedAt
		} else {
			id, err := a.placements.InsertHoldTx(ctx, tx, slotID, allowed, expires, actor, now)
			if err != nil {
				return err
			}
			held.ID = id
		}
		return a.audit(ctx, tx, model.ActionHold, actor, slotID, allowed, "", now)
	})
	if err != nil {
		return model.Placement{}, err
	}

	a.logger.Info("tier held", "slot_id", slotID, "tier", held.Tier, "actor", actor, "expires_at", held.HoldExpiresAt)
	return held, nil
}
