package model

import "time"

// Yard is a single container depot.  A yard is divided into blocks and
// each block into ground slots.
type Yard struct {
	ID        uint64    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Block is a named area of a yard (e.g. "A", "REEFER-1").  Codes are unique
// within their yard.
type Block struct {
	ID        uint64    `db:"id" json:"id"`
	YardID    uint64    `db:"yard_id" json:"yard_id"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slot is a ground position in a block that can hold a vertical stack of up
// to TierCapacity containers.  Occupancy is not stored on the slot itself; it
// is derived from the placements recorded against it.
//
// Fields:
//
//	NearGate      – proximity weight in [0,1]; 1 means next to the gate.
//	AvoidMain     – penalty weight in [0,1] for slots on the main lane.
//	IsOdd         – true for odd-numbered bays.
//	SizeType      – preferred container size/type code (nil when unrestricted).
type Slot struct {
	ID           uint64    `db:"id" json:"id"`
	BlockID      uint64    `db:"block_id" json:"block_id"`
	Code         string    `db:"code" json:"code"`
	TierCapacity int       `db:"tier_capacity" json:"tier_capacity"`
	NearGate     float64   `db:"near_gate" json:"near_gate"`
	AvoidMain    float64   `db:"avoid_main" json:"avoid_main"`
	IsOdd        bool      `db:"is_odd" json:"is_odd"`
	SizeType     *string   `db:"size_type" json:"size_type,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SlotSummary is one row of the yard stack map.
type SlotSummary struct {
	YardID        uint64 `db:"yard_id" json:"yard_id"`
	YardName      string `db:"yard_name" json:"yard_name"`
	BlockID       uint64 `db:"block_id" json:"block_id"`
	BlockCode     string `db:"block_code" json:"block_code"`
	SlotID        uint64 `db:"slot_id" json:"slot_id"`
	SlotCode      string `db:"slot_code" json:"slot_code"`
	TierCapacity  int    `db:"tier_capacity" json:"tier_capacity"`
	OccupiedCount int    `db:"occupied_count" json:"occupied_count"`
	HoldCount     int    `db:"hold_count" json:"hold_count"`
}

// SlotCandidate is a slot joined with its block and yard names, used when
// ranking empty slots for a container.
type SlotCandidate struct {
	Slot
	BlockCode string `db:"block_code" json:"block_code"`
	YardID    uint64 `db:"yard_id" json:"yard_id"`
	YardName  string `db:"yard_name" json:"yard_name"`
}
