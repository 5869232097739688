package timesource

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"timewarp/internal/hook"
)

func newTestVirtualizer(t *testing.T, clk *SimulatedClock) (*Virtualizer, *hook.Table) {
	t.Helper()
	tbl := clk.Table()
	v, err := New(tbl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Teardown() })
	return v, tbl
}

func readQPC(t *testing.T, tbl *hook.Table) int64 {
	t.Helper()
	var c int64
	require.True(t, tbl.QueryPerformanceCounter(&c))
	return c
}

func TestNewPassesRealTimeThroughAtSpeedOne(t *testing.T) {
	clk := NewSimulatedClock(1000, 5000, 1_000_000)
	v, tbl := newTestVirtualizer(t, clk)

	assert.Equal(t, 1.0, v.Speed())
	for _, target := range hook.Targets {
		assert.True(t, tbl.Hooked(target), "%s should be hooked", target)
	}

	clk.Advance(50)
	assert.Equal(t, uint32(1050), tbl.TickCount())
	assert.Equal(t, uint64(5050), tbl.TickCount64())
	assert.Equal(t, int64(1_500_000), readQPC(t, tbl))
}

func TestLinearScaling(t *testing.T) {
	speeds := []float64{0.25, 0.5, 2, 3.5, 10}

	for _, speed := range speeds {
		clk := NewSimulatedClock(1000, 5000, 1_000_000)
		v, tbl := newTestVirtualizer(t, clk)

		require.NoError(t, v.SetSpeed(speed))
		tick0, tick640, qpc0 := tbl.TickCount(), tbl.TickCount64(), readQPC(t, tbl)

		clk.Advance(400)

		assert.InDelta(t, 400*speed, float64(tbl.TickCount()-tick0), 1, "speed %v", speed)
		assert.InDelta(t, 400*speed, float64(tbl.TickCount64()-tick640), 1, "speed %v", speed)
		assert.InDelta(t, 400*10000*speed, float64(readQPC(t, tbl)-qpc0), 1, "speed %v", speed)
	}
}

func TestSpeedChangeIsContinuous(t *testing.T) {
	clk := NewSimulatedClock(20, 20, 200_000)
	v, tbl := newTestVirtualizer(t, clk)

	for _, speed := range []float64{2, 0.5, 10, 1, 3.3, 0.01, 7} {
		clk.Advance(123)

		tick, tick64, qpc := tbl.TickCount(), tbl.TickCount64(), readQPC(t, tbl)
		require.NoError(t, v.SetSpeed(speed))

		assert.Equal(t, tick, tbl.TickCount(), "tick count jumped at speed %v", speed)
		assert.Equal(t, tick64, tbl.TickCount64(), "tick count 64 jumped at speed %v", speed)
		assert.Equal(t, qpc, readQPC(t, tbl), "performance counter jumped at speed %v", speed)
	}
}

func TestReanchorUsesOldSpeed(t *testing.T) {
	clk := NewSimulatedClock(0, 0, 0)
	v, tbl := newTestVirtualizer(t, clk)

	require.NoError(t, v.SetSpeed(2))
	clk.Advance(100) // virtual +200
	require.NoError(t, v.SetSpeed(0.5))
	clk.Advance(100) // virtual +50

	assert.Equal(t, uint64(250), tbl.TickCount64())
	snap := v.Snapshot()
	assert.Equal(t, uint64(100), snap.Tick64Base)
	assert.Equal(t, uint64(200), snap.Tick64Offset)
	assert.Equal(t, 0.5, snap.Speed)
}

func TestTickCountWrapsAround(t *testing.T) {
	clk := NewSimulatedClock(0xFFFFFFF0, 0xFFFFFFF0, 0)
	_, tbl := newTestVirtualizer(t, clk)

	clk.Advance(0x20)

	assert.Equal(t, uint32(0x10), tbl.TickCount())
	assert.Equal(t, uint64(0x1_0000_0010), tbl.TickCount64())
}

func TestTickCountWrapsAroundWhileScaled(t *testing.T) {
	clk := NewSimulatedClock(0xFFFFFF00, 0, 0)
	v, tbl := newTestVirtualizer(t, clk)

	require.NoError(t, v.SetSpeed(4))
	clk.Advance(0x100) // real wraps to 0, virtual advances 0x400

	assert.Equal(t, uint32(0x300), tbl.TickCount())
}

func TestSetSpeedRejectsInvalidValues(t *testing.T) {
	clk := NewSimulatedClock(0, 0, 0)
	v, _ := newTestVirtualizer(t, clk)
	require.NoError(t, v.SetSpeed(3))
	before := v.Snapshot()

	for _, speed := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := v.SetSpeed(speed)
		assert.ErrorIs(t, err, ErrInvalidSpeed, "speed %v", speed)

		_, err = v.CompareAndSetSpeed(3, speed)
		assert.ErrorIs(t, err, ErrInvalidSpeed, "speed %v", speed)
	}
	assert.Equal(t, before, v.Snapshot())
}

func TestCompareAndSetSpeed(t *testing.T) {
	clk := NewSimulatedClock(0, 0, 0)
	v, _ := newTestVirtualizer(t, clk)
	require.NoError(t, v.SetSpeed(5))

	swapped, err := v.CompareAndSetSpeed(5, 1)
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.Equal(t, 1.0, v.Speed())

	swapped, err = v.CompareAndSetSpeed(5, 1)
	require.NoError(t, err)
	assert.False(t, swapped)
}

func TestTeardownIsIdempotent(t *testing.T) {
	clk := NewSimulatedClock(100, 100, 100)
	tbl := clk.Table()
	v, err := New(tbl, nil)
	require.NoError(t, err)
	require.NoError(t, v.SetSpeed(8))

	require.NoError(t, v.Teardown())
	require.NoError(t, v.Teardown())

	for _, target := range hook.Targets {
		assert.False(t, tbl.Hooked(target), "%s still hooked", target)
	}
	clk.Advance(10)
	assert.Equal(t, uint32(110), tbl.TickCount())
}

func TestNewRollsBackPartialInstall(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := hook.NewMockEngine(ctrl)
	clk := NewSimulatedClock(0, 0, 0)

	tickHandle := hook.NewMockHandle(ctrl)
	tickHandle.EXPECT().Target().Return(hook.TickCount).AnyTimes()
	tickHandle.EXPECT().Original().Return(hook.TickCountFunc(clk.TickCount)).AnyTimes()

	tick64Handle := hook.NewMockHandle(ctrl)
	tick64Handle.EXPECT().Target().Return(hook.TickCount64).AnyTimes()
	tick64Handle.EXPECT().Original().Return(hook.TickCount64Func(clk.TickCount64)).AnyTimes()

	cause := errors.New("prologue too short")
	gomock.InOrder(
		engine.EXPECT().Install(hook.TickCount, gomock.Any()).Return(tickHandle, nil),
		engine.EXPECT().Install(hook.TickCount64, gomock.Any()).Return(tick64Handle, nil),
		engine.EXPECT().Install(hook.PerformanceCounter, gomock.Any()).Return(nil, cause),
		engine.EXPECT().Uninstall(tick64Handle).Return(nil),
		engine.EXPECT().Uninstall(tickHandle).Return(nil),
	)

	v, err := New(engine, nil)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrHookInstall)
	assert.ErrorIs(t, err, cause)
}

func TestNewRejectsMismatchedOriginal(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := hook.NewMockEngine(ctrl)

	bad := hook.NewMockHandle(ctrl)
	bad.EXPECT().Target().Return(hook.TickCount).AnyTimes()
	bad.EXPECT().Original().Return(func() int { return 0 }).AnyTimes()

	gomock.InOrder(
		engine.EXPECT().Install(hook.TickCount, gomock.Any()).Return(bad, nil),
		engine.EXPECT().Uninstall(bad).Return(nil),
	)

	_, err := New(engine, nil)
	assert.ErrorIs(t, err, ErrHookInstall)
	assert.ErrorIs(t, err, hook.ErrSignature)
}

func TestNewReportsRollbackFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := hook.NewMockEngine(ctrl)
	clk := NewSimulatedClock(0, 0, 0)

	tickHandle := hook.NewMockHandle(ctrl)
	tickHandle.EXPECT().Target().Return(hook.TickCount).AnyTimes()
	tickHandle.EXPECT().Original().Return(hook.TickCountFunc(clk.TickCount)).AnyTimes()

	cause := errors.New("page not writable")
	stuck := errors.New("detour still referenced")
	gomock.InOrder(
		engine.EXPECT().Install(hook.TickCount, gomock.Any()).Return(tickHandle, nil),
		engine.EXPECT().Install(hook.TickCount64, gomock.Any()).Return(nil, cause),
		engine.EXPECT().Uninstall(tickHandle).Return(stuck),
	)

	_, err := New(engine, nil)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, stuck)
}

func TestConcurrentReadersNeverSeeTimeGoBackwards(t *testing.T) {
	clk := NewSimulatedClock(0, 0, 0)
	v, tbl := newTestVirtualizer(t, clk)

	stop := make(chan struct{})
	var bg sync.WaitGroup

	bg.Add(2)
	go func() {
		defer bg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				clk.Advance(1)
			}
		}
	}()
	go func() {
		defer bg.Done()
		speeds := []float64{0.5, 4, 1, 2.5}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				_ = v.SetSpeed(speeds[i%len(speeds)])
			}
		}
	}()

	const readers = 4
	const reads = 5000
	failures := make(chan string, readers)
	var wg sync.WaitGroup
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastTick uint64
			var lastQPC int64
			for i := 0; i < reads; i++ {
				tick := tbl.TickCount64()
				var qpc int64
				tbl.QueryPerformanceCounter(&qpc)
				if tick < lastTick {
					failures <- "tick count went backwards"
					return
				}
				if qpc < lastQPC {
					failures <- "performance counter went backwards"
					return
				}
				lastTick, lastQPC = tick, qpc
			}
		}()
	}
	wg.Wait()
	close(stop)
	bg.Wait()
	close(failures)

	for msg := range failures {
		t.Error(msg)
	}
}

func TestSnapshotIsConsistentUnderConcurrentWrites(t *testing.T) {
	clk := NewSimulatedClock(0, 0, 0)
	v, _ := newTestVirtualizer(t, clk)

	// With the clock frozen every re-anchor lands on the same real reading,
	// so a snapshot must always carry that base whatever its speed.
	clk.Advance(1000)
	require.NoError(t, v.SetSpeed(2))
	want := v.Snapshot()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			_ = v.SetSpeed(float64(i%7 + 1))
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		s := v.Snapshot()
		require.Equal(t, want.TickBase, s.TickBase)
		require.Equal(t, want.TickOffset, s.TickOffset)
		require.Equal(t, want.QPCBase, s.QPCBase)
		require.Equal(t, want.QPCOffset, s.QPCOffset)
		require.True(t, s.Speed >= 1 && s.Speed <= 7)
	}
}

func TestSourceNames(t *testing.T) {
	assert.Equal(t, "tick_count", TickCount.String())
	assert.Equal(t, hook.PerformanceCounter, PerformanceCounter.Target())
	assert.Equal(t, "source(9)", Source(9).String())
}
