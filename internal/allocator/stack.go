package allocator

import (
	"time"

	"github.com/iliyamo/depot-yard/internal/model"
)

// stackView is one slot's stack as seen at a single instant.  Every stacking
// rule is evaluated against it so that "is this hold still active" has one
// answer per operation.
type stackView struct {
	capacity int
	now      time.Time
	byTier   map[int]model.Placement
}

func newStackView(capacity int, placements []model.Placement, now time.Time) stackView {
	v := stackView{capacity: capacity, now: now, byTier: make(map[int]model.Placement, len(placements))}
	for _, p := range placements {
		v.byTier[p.Tier] = p
	}
	return v
}

// at returns the placement row at tier, whatever its status.
func (v stackView) at(tier int) (model.Placement, bool) {
	p, ok := v.byTier[tier]
	return p, ok
}

// live reports whether the tier currently blocks its position: OCCUPIED or
// an unexpired HOLD.
func (v stackView) live(tier int) bool {
	p, ok := v.byTier[tier]
	return ok && (p.IsOccupied() || p.IsActiveHold(v.now))
}

// maxOccupied is the highest OCCUPIED tier, 0 for an empty stack.
func (v stackView) maxOccupied() int {
	top := 0
	for t, p := range v.byTier {
		if p.IsOccupied() && t > top {
			top = t
		}
	}
	return top
}

// nextTier is the only tier a new hold may take.
func (v stackView) nextTier() int { return v.maxOccupied() + 1 }

// liveAbove returns the lowest tier above the given one that is OCCUPIED or
// actively held.
func (v stackView) liveAbove(tier int) (int, bool) {
	found := 0
	for t := range v.byTier {
		if t > tier && v.live(t) && (found == 0 || t < found) {
			found = t
		}
	}
	return found, found != 0
}

// liveAtOrAbove is liveAbove including the tier itself.
func (v stackView) liveAtOrAbove(tier int) (int, bool) {
	if v.live(tier) {
		return tier, true
	}
	return v.liveAbove(tier)
}

// gapBelow returns the lowest tier under the given one that is not OCCUPIED.
func (v stackView) gapBelow(tier int) (int, bool) {
	for t := 1; t < tier; t++ {
		if p, ok := v.byTier[t]; !ok || !p.IsOccupied() {
			return t, true
		}
	}
	return 0, false
}
