package truetime

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	calls atomic.Int32
	panic bool
}

func (p *countingHandler) OnSystemEvent() {
	p.calls.Add(1)
	if p.panic {
		panic("handler failure")
	}
}

func TestReactorOnline(t *testing.T) {
	h := &countingHandler{}
	dut, err := NewTimeChangeReactor(h, func() (bool, error) { return true, nil })
	require.Nil(t, err)

	for _, ev := range []SystemEvent{ClockChanged, DateChanged, TimezoneChanged, ConnectivityChanged} {
		dut.React(ev)
	}
	dut.React(SystemEvent(99))
	assert.Equal(t, int32(4), h.calls.Load())
}

func TestReactorOfflineAndErrors(t *testing.T) {
	h := &countingHandler{}
	dut, err := NewTimeChangeReactor(h, func() (bool, error) { return false, nil })
	require.Nil(t, err)
	dut.React(ClockChanged)
	assert.Equal(t, int32(0), h.calls.Load())

	dut, err = NewTimeChangeReactor(h, func() (bool, error) { return false, fmt.Errorf("netlink failure") })
	require.Nil(t, err)
	dut.React(ClockChanged)
	assert.Equal(t, int32(0), h.calls.Load())

	//Panic from connectivity check or target does not escape
	dut, err = NewTimeChangeReactor(h, func() (bool, error) { panic("check failure") })
	require.Nil(t, err)
	assert.NotPanics(t, func() { dut.React(ClockChanged) })

	hp := &countingHandler{panic: true}
	dut, err = NewTimeChangeReactor(hp, func() (bool, error) { return true, nil })
	require.Nil(t, err)
	assert.NotPanics(t, func() { dut.React(TimezoneChanged) })
	assert.Equal(t, int32(1), hp.calls.Load())

	_, err = NewTimeChangeReactor(nil, nil)
	assert.NotNil(t, err)
}

func TestReactorRun(t *testing.T) {
	h := &countingHandler{}
	dut, err := NewTimeChangeReactor(h, func() (bool, error) { return true, nil })
	require.Nil(t, err)

	events := make(chan SystemEvent, 10)
	for i := 0; i < 5; i++ {
		events <- ConnectivityChanged
	}
	close(events)
	dut.Run(context.Background(), events)
	assert.Equal(t, int32(5), h.calls.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dut.Run(ctx, make(chan SystemEvent))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

// Burst of events on not synced instance ends up in one network sync
func TestReactorDrivesTrueTime(t *testing.T) {
	clk := &manualClock{}
	clk.set(1000)
	bs := newBlockingSync(5_000_000, nil)
	tt, err := New(clk, bs)
	require.Nil(t, err)
	defer tt.Close(time.Second)
	got := make(chan int64, 2)
	tt.AddCallback(NewCallback(func(millis int64) { got <- millis }))

	dut, err := NewTimeChangeReactor(tt, func() (bool, error) { return true, nil })
	require.Nil(t, err)
	dut.React(ConnectivityChanged)
	<-bs.entered
	dut.React(ClockChanged)
	dut.React(DateChanged)
	close(bs.release)
	waitMillis(t, got)
	assert.Equal(t, int32(1), bs.calls.Load())

	clk.set(4000)
	dut.React(TimezoneChanged)
	a, _ := tt.Anchor()
	assert.Equal(t, Anchor{Epoch: 5_003_000, Elapsed: 4000}, a)
	assert.Equal(t, int32(1), bs.calls.Load())
}
