package allocator

import (
	"context"
	"errors"

	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// SlotStack is a slot with every placement row recorded against it.
type SlotStack struct {
	Slot       model.Slot        `json:"slot"`
	Placements []model.Placement `json:"placements"`
}

// StackMap summarises occupancy and active holds for every slot.
func (a *Allocator) StackMap(ctx context.Context) ([]model.SlotSummary, error) {
	out, err := a.placements.StackMap(ctx, a.clock())
	if err != nil {
		return nil, wrapError(KindInternal, err, "stack map query failed")
	}
	return out, nil
}

// StackForSlot returns a slot and all of its placements ordered by tier.
func (a *Allocator) StackForSlot(ctx context.Context, slotID uint64) (SlotStack, error) {
	slot, err := a.yards.GetSlot(ctx, slotID)
	if errors.Is(err, repository.ErrNotFound) {
		return SlotStack{}, newError(KindSlotNotFound, "slot %d does not exist", slotID)
	}
	if err != nil {
		return SlotStack{}, wrapError(KindInternal, err, "slot lookup failed")
	}
	placements, err := a.placements.ListBySlot(ctx, slotID)
	if err != nil {
		return SlotStack{}, wrapError(KindInternal, err, "placement lookup failed")
	}
	return SlotStack{Slot: slot, Placements: placements}, nil
}

// Locate finds where a container is held or placed.
func (a *Allocator) Locate(ctx context.Context, containerNo string) (model.ContainerLocation, error) {
	containerNo = NormalizeContainerNo(containerNo)
	if containerNo == "" {
		return model.ContainerLocation{}, newError(KindInvalidInput, "container_no is required")
	}
	loc, err := a.placements.Locate(ctx, containerNo)
	if errors.Is(err, repository.ErrNotFound) {
		return loc, newError(KindNotFound, "container %s is not in the yard", containerNo)
	}
	if err != nil {
		return loc, wrapError(KindInternal, err, "container lookup failed")
	}
	return loc, nil
}

// ReapExpiredHolds marks holds whose window has passed as REMOVED.  Expired
// holds are already ignored by every rule; reaping only tidies the table.
func (a *Allocator) ReapExpiredHolds(ctx context.Context) (int64, error) {
	n, err := a.placements.ReapExpiredHolds(ctx, a.clock())
	if err != nil {
		return 0, a.classify("reap", err)
	}
	return n, nil
}
