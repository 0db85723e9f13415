package allocator

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/queue"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// ConfirmResult is the outcome of a successful Confirm.
type ConfirmResult struct {
	Placement model.Placement `json:"placement"`
	MoveTask  model.MoveTask  `json:"move_task"`
}

// Confirm turns an active hold at (slotID, tier) into an OCCUPIED placement
// of containerNo, issues a forklift move task and advances the container's
// service request.
//
// The container must exist and have passed inspection, and must not already
// be placed anywhere.  Inside the transaction the hold must still be active, every tier
// below must be OCCUPIED and nothing above may be OCCUPIED or actively held.
func (a *Allocator) Confirm(ctx context.Context, slotID uint64, tier int, containerNo, actor string) (ConfirmResult, error) {
	containerNo = NormalizeContainerNo(containerNo)
	switch {
	case slotID == 0:
		return ConfirmResult{}, newError(KindInvalidInput, "slot_id is required")
	case tier < 1:
		return ConfirmResult{}, newError(KindInvalidInput, "tier must be at least 1")
	case containerNo == "":
		return ConfirmResult{}, newError(KindInvalidInput, "container_no is required")
	}
	if err := validateActor(actor); err != nil {
		return ConfirmResult{}, err
	}

	if err := a.checkEligible(ctx, containerNo); err != nil {
		return ConfirmResult{}, err
	}

	var res ConfirmResult
	err := a.runSerializable(ctx, "confirm", func(tx *sqlx.Tx) error {
		now := a.clock()
		slot, view, err := a.loadStack(ctx, tx, slotID, now)
		if IsKind(err, KindSlotNotFound) {
			return newError(KindHoldNotFoundOrExpired, "no active hold at slot %d tier %d", slotID, tier)
		}
		if err != nil {
			return err
		}

		hold, ok := view.at(tier)
		if !ok || !hold.IsActiveHold(now) {
			return newError(KindHoldNotFoundOrExpired, "no active hold at slot %s tier %d", slot.Code, tier)
		}

		if _, err := a.placements.FindOccupiedByContainerTx(ctx, tx, containerNo); err == nil {
			return newError(KindDuplicateOccupied, "container %s is already placed", containerNo)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if t, ok := view.liveAbove(tier); ok {
			return newError(KindStackOrderViolation, "tier %d of slot %s above is occupied or held", t, slot.Code)
		}
		if t, ok := view.gapBelow(tier); ok {
			return newError(KindStackOrderViolation, "tier %d of slot %s is not occupied", t, slot.Code)
		}

		if err := a.placements.MarkOccupiedTx(ctx, tx, hold.ID, containerNo, now); err != nil {
			return err
		}

		task := model.MoveTask{
			SlotID:      slotID,
			Tier:        tier,
			ContainerNo: containerNo,
			Status:      model.MoveTaskPending,
			CreatedBy:   actor,
			CreatedAt:   now,
		}
		if err := a.tasks.CreateTx(ctx, tx, &task); err != nil {
			return err
		}
		if err := a.gate.AdvanceToPlacedTx(ctx, tx, containerNo, now); err != nil {
			return err
		}
		if err := a.publishMoveTask(ctx, tx, task); err != nil {
			return err
		}
		if err := a.audit(ctx, tx, model.ActionConfirm, actor, slotID, tier, containerNo, now); err != nil {
			return err
		}

		placed := hold
		placed.Status = model.PlacementOccupied
		placed.ContainerNo = &containerNo
		placed.HoldExpiresAt = nil
		placed.PlacedAt = &now
		placed.RemovedAt = nil
		placed.UpdatedAt = now
		res = ConfirmResult{Placement: placed, MoveTask: task}
		return nil
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	a.logger.Info("placement confirmed", "slot_id", slotID, "tier", tier, "container", containerNo,
		"move_task", res.MoveTask.ID, "actor", actor)
	return res, nil
}

// checkEligible runs the gate pre-check outside the main transaction.  An
// already placed container is reported as KindDuplicateOccupied, the same
// kind the in-transaction check uses.
func (a *Allocator) checkEligible(ctx context.Context, containerNo string) error {
	e, err := a.gate.Eligibility(ctx, containerNo)
	if err != nil {
		return wrapError(KindInternal, err, "eligibility lookup for %s failed", containerNo)
	}
	if !e.Exists {
		return newError(KindContainerNotEligible, "container %s is not known to the gate", containerNo)
	}
	if !e.Checked {
		return newError(KindContainerNotEligible, "container %s has not passed inspection", containerNo)
	}

	p, err := a.placements.FindOccupiedByContainer(ctx, containerNo)
	switch {
	case err == nil:
		return newError(KindDuplicateOccupied, "container %s is already placed at slot %d tier %d",
			containerNo, p.SlotID, p.Tier)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return wrapError(KindInternal, err, "placement lookup for %s failed", containerNo)
	}
}

// publishMoveTask queues the move task for the forklift subsystem.
func (a *Allocator) publishMoveTask(ctx context.Context, tx *sqlx.Tx, task model.MoveTask) error {
	ev := queue.MoveTaskEvent{
		TaskID:      task.ID,
		SlotID:      task.SlotID,
		Tier:        task.Tier,
		ContainerNo: task.ContainerNo,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return a.outbox.AppendTx(ctx, tx, &model.OutboxMessage{
		EventID:     uuid.NewString(),
		Topic:       model.TopicMoveTasks,
		Action:      model.ActionMoveTaskCreated,
		Actor:       task.CreatedBy,
		SlotID:      &task.SlotID,
		Tier:        &task.Tier,
		ContainerNo: &task.ContainerNo,
		Payload:     string(body),
		CreatedAt:   task.CreatedAt,
	})
}
