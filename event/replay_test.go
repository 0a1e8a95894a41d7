package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordedFixture() []Recorded {
	return []Recorded{
		{Type: "task_start", Timestamp: 100.0, RelativeTime: 0.0},
		{Type: "round_start", Data: map[string]any{"round": float64(1)}, Timestamp: 100.5, RelativeTime: 0.5},
		{Type: "exec", Timestamp: 101.5, RelativeTime: 1.5},
		{Type: "task_end", Timestamp: 103.5, RelativeTime: 3.5},
	}
}

func TestReplayerRejectsBadSpeed(t *testing.T) {
	_, err := NewReplayer(NewBus(), 0)
	assert.Error(t, err)
	_, err = NewReplayer(NewBus(), -1)
	assert.Error(t, err)
}

func TestReplayerScalesTiming(t *testing.T) {
	bus := NewBus()
	var seen []Name
	for _, n := range []Name{TaskStart, RoundStart, ExecStart, TaskEnd} {
		name := n
		bus.OnEvent(name, func(Event) { seen = append(seen, name) })
	}

	r, err := NewReplayer(bus, 2.0)
	require.NoError(t, err)
	var slept []time.Duration
	r.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, r.Replay(recordedFixture()))

	assert.Equal(t, []Name{TaskStart, RoundStart, ExecStart, TaskEnd}, seen)
	// Round starts gate on confirmation instead of sleeping; the remaining
	// gaps (1.0s and 2.0s) are halved at speed 2.
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, slept)
}

type denyAfter struct {
	allow int
	asked []int
}

func (d *denyAfter) ConfirmRound(round int) bool {
	d.asked = append(d.asked, round)
	d.allow--
	return d.allow >= 0
}

func TestReplayerHaltsOnDeclinedRound(t *testing.T) {
	bus := NewBus()
	var emitted int
	bus.OnEvent(RoundStart, func(Event) { emitted++ })
	bus.OnEvent(TaskStart, func(Event) { emitted++ })

	r, err := NewReplayer(bus, 1.0)
	require.NoError(t, err)
	r.sleep = func(time.Duration) {}
	gate := &denyAfter{allow: 0}
	r.SetConfirmer(gate)

	err = r.Replay(recordedFixture())
	assert.ErrorIs(t, err, ErrReplayCancelled)
	assert.Equal(t, []int{1}, gate.asked)
	// task_start was emitted before the declined round; nothing after it.
	assert.Equal(t, 1, emitted)
}

func TestReplayerDecodesPayloads(t *testing.T) {
	bus := NewBus()
	var round any
	bus.OnEvent(RoundStart, func(ev Event) { round = ev.Get("round") })

	r, err := NewReplayer(bus, 1.0)
	require.NoError(t, err)
	r.sleep = func(time.Duration) {}

	require.NoError(t, r.Replay(recordedFixture()))
	assert.Equal(t, float64(1), round)
}
