package allocator

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/depot-yard/internal/config"
	"github.com/iliyamo/depot-yard/internal/database"
	"github.com/iliyamo/depot-yard/internal/model"
	"github.com/iliyamo/depot-yard/internal/repository"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	db     *sqlx.DB
	alloc  *Allocator
	clock  *fakeClock
	gate   *repository.GateRepo
	yards  *repository.YardRepo
	outbox *repository.OutboxRepo
	tasks  *repository.MoveTaskRepo
	block  model.Block
}

const testTTL = 10 * time.Minute

func setupAllocator(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DBConfig{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)}
	gate := repository.NewGateRepo(db)
	alloc := New(db, gate, Config{HoldTTL: testTTL, SuggestLimit: 10}, log.New(io.Discard), WithClock(clock.Now))

	yards := repository.NewYardRepo(db)
	ctx := context.Background()
	yard, err := yards.CreateYard(ctx, "North")
	require.NoError(t, err)
	block, err := yards.CreateBlock(ctx, yard.ID, "A")
	require.NoError(t, err)

	return &fixture{
		db:     db,
		alloc:  alloc,
		clock:  clock,
		gate:   gate,
		yards:  yards,
		outbox: repository.NewOutboxRepo(db),
		tasks:  repository.NewMoveTaskRepo(db),
		block:  block,
	}
}

func (f *fixture) slot(t *testing.T, code string, capacity int) model.Slot {
	t.Helper()
	s := model.Slot{BlockID: f.block.ID, Code: code, TierCapacity: capacity}
	require.NoError(t, f.yards.CreateSlot(context.Background(), &s))
	return s
}

func (f *fixture) eligible(t *testing.T, containers ...string) {
	t.Helper()
	for _, c := range containers {
		require.NoError(t, f.gate.UpsertServiceRequest(context.Background(), c, "22G1", repository.RequestStatusChecked, true))
	}
}

func tierPtr(n int) *int { return &n }

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
}

// assertInvariants checks the stacking invariants across every slot.
func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	var rows []model.Placement
	require.NoError(t, f.db.Select(&rows, `SELECT * FROM placements`))
	now := f.clock.Now()

	bySlot := map[uint64]map[int]model.Placement{}
	perContainer := map[string]int{}
	for _, p := range rows {
		if bySlot[p.SlotID] == nil {
			bySlot[p.SlotID] = map[int]model.Placement{}
		}
		bySlot[p.SlotID][p.Tier] = p
		if p.IsOccupied() {
			perContainer[p.Container()]++
		}
	}

	for c, n := range perContainer {
		assert.LessOrEqual(t, n, 1, "container %s occupies %d tiers", c, n)
	}

	for slotID, tiers := range bySlot {
		top := 0
		for tier, p := range tiers {
			if p.IsOccupied() && tier > top {
				top = tier
			}
		}
		for tier := 1; tier <= top; tier++ {
			p, ok := tiers[tier]
			assert.True(t, ok && p.IsOccupied(), "slot %d has a gap at tier %d under tier %d", slotID, tier, top)
		}
		for tier, p := range tiers {
			if p.IsActiveHold(now) {
				assert.Equal(t, top+1, tier, "slot %d has an active hold at tier %d with top %d", slotID, tier, top)
			}
		}
	}
}

// =============================================================================
// Scenarios
// =============================================================================

func TestScenario_StackAndUnstack(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 3)
	f.eligible(t, "CNT1", "CNT2")

	h, err := f.alloc.Hold(ctx, s.ID, tierPtr(1), "op")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Tier)
	require.NotNil(t, h.HoldExpiresAt)
	assert.Equal(t, f.clock.Now().Add(testTTL), *h.HoldExpiresAt)

	_, err = f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	require.NoError(t, err)

	h, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	assert.Equal(t, 2, h.Tier)

	_, err = f.alloc.Confirm(ctx, s.ID, 2, "CNT2", "op")
	require.NoError(t, err)

	_, err = f.alloc.Remove(ctx, "CNT1", "op")
	requireKind(t, err, KindStackOrderViolation)

	_, err = f.alloc.Remove(ctx, "CNT2", "op")
	require.NoError(t, err)
	_, err = f.alloc.Remove(ctx, "CNT1", "op")
	require.NoError(t, err)

	f.assertInvariants(t)
}

func TestScenario_HoldSkippingAheadFails(t *testing.T) {
	f := setupAllocator(t)
	s := f.slot(t, "01", 3)

	_, err := f.alloc.Hold(context.Background(), s.ID, tierPtr(2), "op")
	requireKind(t, err, KindInvalidTier)
}

func TestScenario_ConfirmContainerPlacedElsewhere(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s1 := f.slot(t, "01", 3)
	s2 := f.slot(t, "02", 3)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Hold(ctx, s1.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s1.ID, 1, "CNT1", "op")
	require.NoError(t, err)

	_, err = f.alloc.Hold(ctx, s2.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s2.ID, 1, "cnt1", "op")
	requireKind(t, err, KindDuplicateOccupied)

	f.assertInvariants(t)
}

// =============================================================================
// Hold
// =============================================================================

func TestHold_Validation(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()

	_, err := f.alloc.Hold(ctx, 0, nil, "op")
	requireKind(t, err, KindInvalidInput)

	_, err = f.alloc.Hold(ctx, 1, nil, "  ")
	requireKind(t, err, KindInvalidInput)

	_, err = f.alloc.Hold(ctx, 9999, nil, "op")
	requireKind(t, err, KindSlotNotFound)
}

func TestHold_ActiveHoldBlocksUntilExpiry(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)

	first, err := f.alloc.Hold(ctx, s.ID, nil, "op-a")
	require.NoError(t, err)

	_, err = f.alloc.Hold(ctx, s.ID, nil, "op-b")
	requireKind(t, err, KindTierAlreadyHeld)
	_, err = f.alloc.Hold(ctx, s.ID, tierPtr(1), "op-b")
	requireKind(t, err, KindTierAlreadyHeld)

	f.clock.Advance(testTTL)

	second, err := f.alloc.Hold(ctx, s.ID, nil, "op-b")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Tier)
	assert.Equal(t, first.ID, second.ID, "expired row is reused in place")
	assert.Equal(t, "op-b", second.CreatedBy)
}

func TestHold_CapacityExceeded(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 1)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	require.NoError(t, err)

	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	requireKind(t, err, KindStackCapacityExceeded)
	_, err = f.alloc.Hold(ctx, s.ID, tierPtr(2), "op")
	requireKind(t, err, KindStackCapacityExceeded)
}

func TestHold_ReusesRemovedRow(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)

	h, err := f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Release(ctx, s.ID, 1, "op")
	require.NoError(t, err)

	again, err := f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	assert.Equal(t, h.ID, again.ID)

	stack, err := f.alloc.StackForSlot(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, stack.Placements, 1)
	assert.Equal(t, model.PlacementHold, stack.Placements[0].Status)
}

func TestHold_ConcurrentCallersGetOneTier(t *testing.T) {
	f := setupAllocator(t)
	s := f.slot(t, "01", 3)

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.alloc.Hold(context.Background(), s.ID, nil, fmt.Sprintf("op-%d", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	for _, err := range errs {
		kind := KindOf(err)
		assert.Contains(t, []Kind{KindTierAlreadyHeld, KindConcurrencyConflict}, kind, "unexpected error %v", err)
	}
	f.assertInvariants(t)
}

func countRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestRunSerializable_StaleUpdateRollsBack(t *testing.T) {
	f := setupAllocator(t)
	s := f.slot(t, "01", 3)
	ctx := context.Background()

	h, err := f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Release(ctx, s.ID, 1, "op")
	require.NoError(t, err)
	events := countRows(t, f.db, "audit_events")

	// the row is REMOVED by now, so an update guarded on HOLD matches nothing
	err = f.alloc.runSerializable(ctx, "hold", func(tx *sqlx.Tx) error {
		now := f.clock.Now()
		if err := f.alloc.audit(ctx, tx, model.ActionHold, "op", s.ID, 1, "", now); err != nil {
			return err
		}
		return f.alloc.placements.ReholdTx(ctx, tx, h.ID, model.PlacementHold, now.Add(testTTL), "op", now)
	})
	requireKind(t, err, KindConcurrencyConflict)
	assert.True(t, KindOf(err).Retryable())
	assert.ErrorIs(t, err, repository.ErrConflict)

	assert.Equal(t, events, countRows(t, f.db, "audit_events"))
	stack, err := f.alloc.StackForSlot(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, stack.Placements, 1)
	assert.Equal(t, model.PlacementRemoved, stack.Placements[0].Status)
}

func TestHold_LockedDatabaseIsRetryableConflict(t *testing.T) {
	// short busy timeout so the locked write fails fast
	dsn := filepath.Join(t.TempDir(), "yard.db") + "?_foreign_keys=on&_busy_timeout=50"
	cfg := config.DBConfig{Driver: database.DriverSQLite, Name: dsn}

	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	other, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { other.Close() })

	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)}
	alloc := New(db, repository.NewGateRepo(db), Config{HoldTTL: testTTL}, log.New(io.Discard), WithClock(clock.Now))

	yards := repository.NewYardRepo(db)
	yard, err := yards.CreateYard(ctx, "North")
	require.NoError(t, err)
	block, err := yards.CreateBlock(ctx, yard.ID, "A")
	require.NoError(t, err)
	s := model.Slot{BlockID: block.ID, Code: "01", TierCapacity: 3}
	require.NoError(t, yards.CreateSlot(ctx, &s))

	// a second writer holds the database write lock
	lock, err := other.Beginx()
	require.NoError(t, err)
	_, err = lock.Exec(`INSERT INTO yards (name, created_at) VALUES (?, ?)`, "South", clock.Now())
	require.NoError(t, err)

	_, err = alloc.Hold(ctx, s.ID, nil, "op")
	requireKind(t, err, KindConcurrencyConflict)
	assert.True(t, KindOf(err).Retryable())

	require.NoError(t, lock.Rollback())
	assert.Zero(t, countRows(t, db, "placements"))
	assert.Zero(t, countRows(t, db, "audit_events"))

	// the caller retries once the other writer is gone
	h, err := alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	assert.Equal(t, 1, h.Tier)
	assert.Equal(t, 1, countRows(t, db, "audit_events"))
}

// =============================================================================
// Confirm
// =============================================================================

func TestConfirm_Eligibility(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)
	require.NoError(t, f.gate.UpsertServiceRequest(ctx, "RAW0000001", "", "PENDING", false))

	_, err := f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)

	_, err = f.alloc.Confirm(ctx, s.ID, 1, "GHOST00001", "op")
	requireKind(t, err, KindContainerNotEligible)
	assert.Contains(t, Message(err), "not known")

	_, err = f.alloc.Confirm(ctx, s.ID, 1, "RAW0000001", "op")
	requireKind(t, err, KindContainerNotEligible)
	assert.Contains(t, Message(err), "inspection")

	// a passed repair inspection makes it eligible
	require.NoError(t, f.gate.AddRepairTicket(ctx, "RAW0000001", "CLOSED", true))
	_, err = f.alloc.Confirm(ctx, s.ID, 1, "RAW0000001", "op")
	require.NoError(t, err)
}

func TestConfirm_Validation(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()

	_, err := f.alloc.Confirm(ctx, 0, 1, "CNT1", "op")
	requireKind(t, err, KindInvalidInput)
	_, err = f.alloc.Confirm(ctx, 1, 0, "CNT1", "op")
	requireKind(t, err, KindInvalidInput)
	_, err = f.alloc.Confirm(ctx, 1, 1, "   ", "op")
	requireKind(t, err, KindInvalidInput)
}

func TestConfirm_RequiresActiveHold(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	requireKind(t, err, KindHoldNotFoundOrExpired)

	_, err = f.alloc.Confirm(ctx, 424242, 1, "CNT1", "op")
	requireKind(t, err, KindHoldNotFoundOrExpired)

	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	f.clock.Advance(testTTL + time.Second)

	_, err = f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	requireKind(t, err, KindHoldNotFoundOrExpired)
}

func TestConfirm_SideEffects(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)
	f.eligible(t, "MSCU1234565")

	_, err := f.alloc.Hold(ctx, s.ID, nil, "op-1")
	require.NoError(t, err)
	res, err := f.alloc.Confirm(ctx, s.ID, 1, " mscu1234565 ", "op-2")
	require.NoError(t, err)

	assert.Equal(t, model.PlacementOccupied, res.Placement.Status)
	assert.Equal(t, "MSCU1234565", res.Placement.Container())
	assert.Nil(t, res.Placement.HoldExpiresAt)
	require.NotNil(t, res.Placement.PlacedAt)
	assert.NotZero(t, res.MoveTask.ID)

	tasks, err := f.tasks.ListByContainer(ctx, "MSCU1234565")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, s.ID, tasks[0].SlotID)
	assert.Equal(t, "op-2", tasks[0].CreatedBy)
	assert.Equal(t, model.MoveTaskPending, tasks[0].Status)

	status, err := f.gate.RequestStatus(ctx, "MSCU1234565")
	require.NoError(t, err)
	assert.Equal(t, repository.RequestStatusInYard, status)

	msgs, err := f.outbox.ListUnpublished(ctx, 10)
	require.NoError(t, err)
	var actions []string
	for _, m := range msgs {
		actions = append(actions, m.Action)
	}
	assert.Equal(t, []string{model.ActionHold, model.ActionMoveTaskCreated, model.ActionConfirm}, actions)
	assert.Equal(t, model.TopicMoveTasks, msgs[1].Topic)
	assert.Equal(t, "op-2", msgs[2].Actor)
	require.NotNil(t, msgs[2].ContainerNo)
	assert.Equal(t, "MSCU1234565", *msgs[2].ContainerNo)

	loc, err := f.alloc.Locate(ctx, "mscu1234565")
	require.NoError(t, err)
	assert.Equal(t, 1, loc.Tier)
	assert.Equal(t, "North", loc.YardName)
}

func TestConfirm_StackOrder(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	placements := repository.NewPlacementRepo(f.db)
	f.eligible(t, "CNT1", "CNT2")
	now := f.clock.Now()

	// a live hold above the tier being confirmed
	above := f.slot(t, "01", 3)
	_, err := f.alloc.Hold(ctx, above.ID, nil, "op")
	require.NoError(t, err)
	tx := f.db.MustBegin()
	_, err = placements.InsertHoldTx(ctx, tx, above.ID, 2, now.Add(time.Hour), "legacy", now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = f.alloc.Confirm(ctx, above.ID, 1, "CNT1", "op")
	requireKind(t, err, KindStackOrderViolation)

	// a hold with an empty tier underneath
	gap := f.slot(t, "02", 3)
	tx = f.db.MustBegin()
	_, err = placements.InsertHoldTx(ctx, tx, gap.ID, 2, now.Add(time.Hour), "legacy", now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = f.alloc.Confirm(ctx, gap.ID, 2, "CNT2", "op")
	requireKind(t, err, KindStackOrderViolation)

	// failed confirms leave no trace
	tasks, err := f.tasks.ListByContainer(ctx, "CNT1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	confirms, err := f.outbox.ListByAction(ctx, model.ActionConfirm)
	require.NoError(t, err)
	assert.Empty(t, confirms)
}

// =============================================================================
// Release and Remove
// =============================================================================

func TestRelease(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 2)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Release(ctx, s.ID, 1, "op")
	requireKind(t, err, KindNotHeld)

	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	p, err := f.alloc.Release(ctx, s.ID, 1, "op")
	require.NoError(t, err)
	assert.Equal(t, model.PlacementRemoved, p.Status)
	assert.Nil(t, p.HoldExpiresAt)
	require.NotNil(t, p.RemovedAt)

	_, err = f.alloc.Release(ctx, s.ID, 1, "op")
	requireKind(t, err, KindNotHeld)

	// expired holds can still be released
	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	f.clock.Advance(2 * testTTL)
	_, err = f.alloc.Release(ctx, s.ID, 1, "op")
	require.NoError(t, err)

	// occupied tiers are not holds
	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	require.NoError(t, err)
	_, err = f.alloc.Release(ctx, s.ID, 1, "op")
	requireKind(t, err, KindNotHeld)
}

func TestRemove(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s := f.slot(t, "01", 3)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Remove(ctx, "CNT1", "op")
	requireKind(t, err, KindNotOccupied)
	_, err = f.alloc.Remove(ctx, "", "op")
	requireKind(t, err, KindInvalidInput)

	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s.ID, 1, "CNT1", "op")
	require.NoError(t, err)

	// an active hold on top blocks removal
	_, err = f.alloc.Hold(ctx, s.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Remove(ctx, "CNT1", "op")
	requireKind(t, err, KindStackOrderViolation)

	// once it lapses the hold is as good as absent
	f.clock.Advance(testTTL)
	p, err := f.alloc.Remove(ctx, "CNT1", "op")
	require.NoError(t, err)
	assert.Equal(t, model.PlacementRemoved, p.Status)
	assert.Equal(t, "CNT1", p.Container())

	_, err = f.alloc.Locate(ctx, "CNT1")
	requireKind(t, err, KindNotFound)
	f.assertInvariants(t)
}

// =============================================================================
// Read paths
// =============================================================================

func TestStackMapAndLookups(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	s1 := f.slot(t, "01", 3)
	s2 := f.slot(t, "02", 2)
	f.eligible(t, "CNT1")

	_, err := f.alloc.Hold(ctx, s1.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Confirm(ctx, s1.ID, 1, "CNT1", "op")
	require.NoError(t, err)
	_, err = f.alloc.Hold(ctx, s1.ID, nil, "op")
	require.NoError(t, err)
	_, err = f.alloc.Hold(ctx, s2.ID, nil, "op")
	require.NoError(t, err)

	f.clock.Advance(testTTL / 2)
	m, err := f.alloc.StackMap(ctx)
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.Equal(t, 1, m[0].OccupiedCount)
	assert.Equal(t, 1, m[0].HoldCount)
	assert.Equal(t, 1, m[1].HoldCount)

	f.clock.Advance(testTTL)
	m, err = f.alloc.StackMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, m[0].HoldCount)
	assert.Equal(t, 0, m[1].HoldCount)

	stack, err := f.alloc.StackForSlot(ctx, s1.ID)
	require.NoError(t, err)
	require.Len(t, stack.Placements, 2)
	assert.Equal(t, 1, stack.Placements[0].Tier)
	assert.Equal(t, 2, stack.Placements[1].Tier)

	_, err = f.alloc.StackForSlot(ctx, 999)
	requireKind(t, err, KindSlotNotFound)

	_, err = f.alloc.Locate(ctx, "NOPE")
	requireKind(t, err, KindNotFound)

	n, err := f.alloc.ReapExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSuggest(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()

	mk := func(code string, nearGate, avoidMain float64, odd bool, sizeType *string) model.Slot {
		s := model.Slot{BlockID: f.block.ID, Code: code, TierCapacity: 3, NearGate: nearGate, AvoidMain: avoidMain, IsOdd: odd, SizeType: sizeType}
		require.NoError(t, f.yards.CreateSlot(ctx, &s))
		return s
	}
	best := mk("01", 1, 0, true, strPtr("22G1"))
	mk("02", 0.5, 1, false, nil)
	reefer := mk("03", 1, 0, true, strPtr("45R1"))
	f.eligible(t, "CNT1", "CNT2")

	got, err := f.alloc.Suggest(ctx, "CNT1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, best.ID, got[0].SlotID)
	assert.Equal(t, reefer.ID, got[1].SlotID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)

	// a held slot is no longer empty
	_, err = f.alloc.Hold(ctx, best.ID, nil, "op")
	require.NoError(t, err)
	got, err = f.alloc.Suggest(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, reefer.ID, got[0].SlotID)
	assert.InDelta(t, 0.85, got[0].Score, 1e-9)

	_, err = f.alloc.Confirm(ctx, best.ID, 1, "CNT2", "op")
	require.NoError(t, err)
	_, err = f.alloc.Suggest(ctx, "CNT2")
	requireKind(t, err, KindAlreadyAssigned)
	assert.Contains(t, Message(err), "slot 01")
}

// =============================================================================
// Randomised sequences
// =============================================================================

func TestRandomOperationsPreserveInvariants(t *testing.T) {
	f := setupAllocator(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20240603))

	slots := []model.Slot{f.slot(t, "01", 3), f.slot(t, "02", 2), f.slot(t, "03", 4)}
	containers := []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7"}
	f.eligible(t, containers...)

	for step := 0; step < 400; step++ {
		s := slots[rng.Intn(len(slots))]
		tier := 1 + rng.Intn(s.TierCapacity)
		c := containers[rng.Intn(len(containers))]

		var err error
		switch op := rng.Intn(10); {
		case op < 3:
			var want *int
			if rng.Intn(2) == 0 {
				want = &tier
			}
			_, err = f.alloc.Hold(ctx, s.ID, want, "fuzz")
		case op < 6:
			_, err = f.alloc.Confirm(ctx, s.ID, tier, c, "fuzz")
		case op < 7:
			_, err = f.alloc.Release(ctx, s.ID, tier, "fuzz")
		case op < 9:
			_, err = f.alloc.Remove(ctx, c, "fuzz")
		default:
			f.clock.Advance(time.Duration(rng.Intn(600)) * time.Second)
		}

		if err != nil {
			kind := KindOf(err)
			require.NotEmpty(t, kind, "step %d: untyped error %v", step, err)
			require.NotEqual(t, KindInternal, kind, "step %d: %v", step, err)
		}
		f.assertInvariants(t)
	}
}
