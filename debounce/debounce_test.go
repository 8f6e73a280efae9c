package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFired(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("action did not run")
		return 0
	}
}

func assertNotFired(t *testing.T, ch <-chan int) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected action %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedule_RunsAfterDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ch := make(chan int, 1)

	h := Schedule(clock, 2*time.Second, func() { ch <- 1 })
	assert.True(t, h.Pending())

	clock.Advance(1999 * time.Millisecond)
	assertNotFired(t, ch)

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, waitFired(t, ch))
	assert.False(t, h.Cancel())
}

func TestHandle_CancelPreventsRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ch := make(chan int, 1)

	h := Schedule(clock, time.Second, func() { ch <- 1 })
	require.True(t, h.Cancel())
	assert.False(t, h.Pending())
	assert.False(t, h.Cancel())

	clock.Advance(5 * time.Second)
	assertNotFired(t, ch)
}

func TestHandle_NilCancel(t *testing.T) {
	var h *Handle
	assert.False(t, h.Cancel())
	assert.False(t, h.Pending())
}

func TestDebouncer_RescheduleResetsDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := New(clock)
	ch := make(chan int, 4)

	d.Schedule(2*time.Second, func() { ch <- 1 })
	clock.Advance(1500 * time.Millisecond)
	d.Schedule(2*time.Second, func() { ch <- 2 })

	clock.Advance(1500 * time.Millisecond)
	assertNotFired(t, ch)
	assert.True(t, d.Pending())

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 2, waitFired(t, ch))
	assertNotFired(t, ch)
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := New(clock)
	var runs atomic.Int32

	d.Schedule(time.Second, func() { runs.Add(1) })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())
	assert.False(t, d.Pending())

	clock.Advance(2 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, runs.Load())
}
