package allocator

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// Scoring weights for slot suggestions.
const (
	weightNearGate = 0.4
	weightTypeFit  = 0.3
	weightOffMain  = 0.2
	weightOdd      = 0.1
)

// Suggestion is a ranked empty slot.
type Suggestion struct {
	SlotID       uint64  `json:"slot_id"`
	SlotCode     string  `json:"slot_code"`
	BlockCode    string  `json:"block_code"`
	YardName     string  `json:"yard_name"`
	TierCapacity int     `json:"tier_capacity"`
	Score        float64 `json:"score"`
	TypeFit      float64 `json:"type_fit"`
}

// Suggest ranks empty slots for a container.  containerNo may be empty, in
// which case the container type is unknown.  A container that already has an
// OCCUPIED placement gets KindAlreadyAssigned instead.  Nothing is reserved.
func (a *Allocator) Suggest(ctx context.Context, containerNo string) ([]Suggestion, error) {
	containerNo = NormalizeContainerNo(containerNo)

	containerType := ""
	if containerNo != "" {
		p, err := a.placements.FindOccupiedByContainer(ctx, containerNo)
		switch {
		case err == nil:
			code := ""
			if slot, err := a.yards.GetSlot(ctx, p.SlotID); err == nil {
				code = slot.Code
			}
			return nil, newError(KindAlreadyAssigned, "container %s is already assigned to slot %s (id %d) tier %d",
				containerNo, code, p.SlotID, p.Tier)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, wrapError(KindInternal, err, "placement lookup failed")
		}

		e, err := a.gate.Eligibility(ctx, containerNo)
		if err != nil {
			return nil, wrapError(KindInternal, err, "eligibility lookup for %s failed", containerNo)
		}
		containerType = e.ContainerType
	}

	candidates, err := a.yards.ListEmptySlots(ctx, a.clock())
	if err != nil {
		return nil, wrapError(KindInternal, err, "empty slot query failed")
	}
	return rankSlots(candidates, containerType, a.cfg.SuggestLimit), nil
}

// rankSlots scores candidates, sorts them best first (ties by slot ID) and
// keeps at most limit.
func rankSlots(candidates []model.SlotCandidate, containerType string, limit int) []Suggestion {
	out := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		fit := typeFit(c.SizeType, containerType)
		out = append(out, Suggestion{
			SlotID:       c.ID,
			SlotCode:     c.Code,
			BlockCode:    c.BlockCode,
			YardName:     c.YardName,
			TierCapacity: c.TierCapacity,
			Score:        scoreSlot(c.Slot, fit),
			TypeFit:      fit,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SlotID < out[j].SlotID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func scoreSlot(s model.Slot, fit float64) float64 {
	odd := 0.0
	if s.IsOdd {
		odd = 1
	}
	return weightNearGate*clamp01(s.NearGate) +
		weightTypeFit*fit +
		weightOffMain*(1-clamp01(s.AvoidMain)) +
		weightOdd*odd
}

// typeFit is 1 on a match, 0 on a mismatch and 0.5 when either side is
// unknown.
func typeFit(slotType *string, containerType string) float64 {
	if slotType == nil || *slotType == "" || containerType == "" {
		return 0.5
	}
	if strings.EqualFold(*slotType, containerType) {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
