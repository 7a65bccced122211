package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civgrid/internal/world"
)

func schedulerFixture(t *testing.T) (*simFixture, *Scheduler) {
	t.Helper()
	cell := grassCell("c1", 0, 0, 100)
	f := newSimFixture(t, []*world.Cell{cell})
	// An hour-long interval means no tick fires during the test.
	return f, NewScheduler(f.sim, time.Hour)
}

func TestScheduler_ZeroTicksLeavesCountersUnchanged(t *testing.T) {
	f, sched := schedulerFixture(t)

	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()

	assert.Equal(t, int64(0), f.world.CurrentTick)
	assert.Equal(t, int64(0), f.world.CurrentYear)

	stored, err := f.store.ActiveWorld(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.CurrentTick)
	assert.Equal(t, int64(0), stored.CurrentYear)
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	_, sched := schedulerFixture(t)

	require.NoError(t, sched.Start(context.Background()))
	assert.ErrorIs(t, sched.Start(context.Background()), ErrAlreadyRunning)
	sched.Stop()
}

func TestScheduler_StoppedIsTerminal(t *testing.T) {
	_, sched := schedulerFixture(t)

	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
	assert.Equal(t, StateStopped, sched.State())
	assert.ErrorIs(t, sched.Start(context.Background()), ErrStopped)
}

func TestScheduler_StopBeforeStartIsANoOp(t *testing.T) {
	_, sched := schedulerFixture(t)
	sched.Stop()
	assert.Equal(t, StateIdle, sched.State())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	_, sched := schedulerFixture(t)
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
	sched.Stop()
	assert.Equal(t, StateStopped, sched.State())
}

func TestScheduler_ContextCancelStopsTheScheduler(t *testing.T) {
	_, sched := schedulerFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	cancel()

	require.Eventually(t, func() bool {
		return sched.State() == StateStopped
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, sched.Start(context.Background()), ErrStopped)
}

func TestScheduler_TicksFireAndSurviveErrors(t *testing.T) {
	cell := grassCell("c1", 0, 0, 100)
	f := newSimFixture(t, []*world.Cell{cell})
	f.insertPop(t, testPop("p1", "c1", "civ1", cell, 5000))

	sched := NewScheduler(f.sim, 5*time.Millisecond)
	require.NoError(t, sched.Start(context.Background()))
	time.Sleep(120 * time.Millisecond)
	// Stop blocks until the loop drains, so the counters are safe to read.
	sched.Stop()

	assert.GreaterOrEqual(t, f.world.CurrentTick, int64(1))
	assert.NotEmpty(t, f.obs.ticks)
}

func TestSchedulerStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
