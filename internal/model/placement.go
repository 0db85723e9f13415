package model

import "time"

// Placement status values.  A placement row is keyed by (slot, tier) and
// moves between these states; REMOVED rows are free for reuse.
const (
	PlacementHold     = "HOLD"
	PlacementOccupied = "OCCUPIED"
	PlacementRemoved  = "REMOVED"
)

// Placement records the state of one tier position within one slot.
//
// Fields:
//
//	ContainerNo   – set once the tier is OCCUPIED; nil for holds.
//	HoldExpiresAt – only meaningful while Status is HOLD.
//	PlacedAt      – when the tier became OCCUPIED.
//	RemovedAt     – when the tier was last vacated.
//	CreatedBy     – actor that created or last re-held the row.
type Placement struct {
	ID            uint64     `db:"id" json:"id"`
	SlotID        uint64     `db:"slot_id" json:"slot_id"`
	Tier          int        `db:"tier" json:"tier"`
	Status        string     `db:"status" json:"status"`
	ContainerNo   *string    `db:"container_no" json:"container_no"`
	HoldExpiresAt *time.Time `db:"hold_expires_at" json:"hold_expires_at"`
	PlacedAt      *time.Time `db:"placed_at" json:"placed_at"`
	RemovedAt     *time.Time `db:"removed_at" json:"removed_at"`
	CreatedBy     string     `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActiveHold reports whether the placement is a HOLD that has not expired
// at now.  A HOLD without an expiry never lapses.
func (p Placement) IsActiveHold(now time.Time) bool {
	if p.Status != PlacementHold {
		return false
	}
	return p.HoldExpiresAt == nil || p.HoldExpiresAt.After(now)
}

// IsOccupied reports whether a container sits at this tier.
func (p Placement) IsOccupied() bool { return p.Status == PlacementOccupied }

// Container returns the container number or "" when none is recorded.
func (p Placement) Container() string {
	if p.ContainerNo == nil {
		return ""
	}
	return *p.ContainerNo
}

// ContainerLocation is the answer to "where is container X".
type ContainerLocation struct {
	ContainerNo string    `db:"container_no" json:"container_no"`
	SlotID      uint64    `db:"slot_id" json:"slot_id"`
	SlotCode    string    `db:"slot_code" json:"slot_code"`
	BlockCode   string    `db:"block_code" json:"block_code"`
	YardName    string    `db:"yard_name" json:"yard_name"`
	Tier        int       `db:"tier" json:"tier"`
	Status      string    `db:"status" json:"status"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
