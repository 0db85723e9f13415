package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/depot-yard/internal/model"
)

func strPtr(s string) *string { return &s }

func candidate(id uint64, code string, nearGate, avoidMain float64, odd bool, sizeType *string) model.SlotCandidate {
	return model.SlotCandidate{
		Slot: model.Slot{
			ID: id, Code: code, TierCapacity: 3,
			NearGate: nearGate, AvoidMain: avoidMain, IsOdd: odd, SizeType: sizeType,
		},
		BlockCode: "A",
		YardName:  "Main",
	}
}

func TestTypeFit(t *testing.T) {
	assert.Equal(t, 1.0, typeFit(strPtr("22G1"), "22g1"))
	assert.Equal(t, 0.0, typeFit(strPtr("45R1"), "22G1"))
	assert.Equal(t, 0.5, typeFit(nil, "22G1"))
	assert.Equal(t, 0.5, typeFit(strPtr(""), "22G1"))
	assert.Equal(t, 0.5, typeFit(strPtr("22G1"), ""))
}

func TestScoreSlot(t *testing.T) {
	best := model.Slot{NearGate: 1, AvoidMain: 0, IsOdd: true}
	assert.InDelta(t, 1.0, scoreSlot(best, 1), 1e-9)

	worst := model.Slot{NearGate: 0, AvoidMain: 1, IsOdd: false}
	assert.InDelta(t, 0.0, scoreSlot(worst, 0), 1e-9)

	// weights outside [0,1] are clamped
	wild := model.Slot{NearGate: 7, AvoidMain: -3}
	assert.InDelta(t, 0.4+0.15+0.2, scoreSlot(wild, 0.5), 1e-9)
}

func TestRankSlots(t *testing.T) {
	cands := []model.SlotCandidate{
		candidate(1, "A01", 1, 0, true, strPtr("22G1")),
		candidate(2, "A02", 0.5, 1, false, nil),
		candidate(3, "A03", 1, 0, true, strPtr("45R1")),
		candidate(4, "A04", 0.5, 1, false, nil),
	}

	got := rankSlots(cands, "22G1", 10)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"A01", "A03", "A02", "A04"},
		[]string{got[0].SlotCode, got[1].SlotCode, got[2].SlotCode, got[3].SlotCode})
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.7, got[1].Score, 1e-9)
	assert.InDelta(t, 0.35, got[2].Score, 1e-9)
	assert.Equal(t, got[2].Score, got[3].Score, "ties keep slot id order")

	got = rankSlots(cands, "22G1", 2)
	assert.Len(t, got, 2)

	assert.Empty(t, rankSlots(nil, "", 10))
}
