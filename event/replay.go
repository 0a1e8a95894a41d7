package event

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrReplayCancelled is returned when the operator declines a round start.
var ErrReplayCancelled = errors.New("replay cancelled")

// Confirmer gates replay at round boundaries.
type Confirmer interface {
	// ConfirmRound is called before a round start is re-emitted. Returning
	// false halts the replay.
	ConfirmRound(round int) bool
}

// AutoConfirm approves every round without asking.
type AutoConfirm struct{}

func (AutoConfirm) ConfirmRound(int) bool { return true }

// Replayer re-emits a recorded event log onto a live bus. Inter-event gaps
// are reproduced from the recorded relative times, scaled by the speed
// factor. Replay is read-only with respect to the recording.
type Replayer struct {
	bus       *Bus
	speed     float64
	confirmer Confirmer
	sleep     func(time.Duration)
	log       *slog.Logger
}

// NewReplayer creates a replayer. speed scales playback: 2.0 is twice as
// fast, 0.5 is half speed. Non-positive speeds are rejected.
func NewReplayer(bus *Bus, speed float64) (*Replayer, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("replay speed must be positive, got %v", speed)
	}
	return &Replayer{
		bus:       bus,
		speed:     speed,
		confirmer: AutoConfirm{},
		sleep:     time.Sleep,
		log:       slog.With("component", "replayer"),
	}, nil
}

// SetConfirmer replaces the round gate. A nil confirmer restores auto mode.
func (r *Replayer) SetConfirmer(c Confirmer) {
	if c == nil {
		c = AutoConfirm{}
	}
	r.confirmer = c
}

// Replay walks the recorded log in order, decodes each payload back into
// domain objects, waits out the scaled inter-event gap, and dispatches the
// event to the bus's current subscribers. Round starts ask the confirmer
// first; a declined round returns ErrReplayCancelled with no further events
// emitted.
func (r *Replayer) Replay(events []Recorded) error {
	r.log.Info("replay started", "events", len(events), "speed", r.speed)
	prev := 0.0
	for i, rec := range events {
		if rec.Type == string(RoundStart) {
			round := roundNumber(rec.Data)
			if !r.confirmer.ConfirmRound(round) {
				r.log.Info("replay cancelled", "round", round, "emitted", i)
				return ErrReplayCancelled
			}
		} else if i > 0 {
			gap := rec.RelativeTime - prev
			if gap > 0 {
				r.sleep(time.Duration(gap / r.speed * float64(time.Second)))
			}
		}
		prev = rec.RelativeTime

		ev := Event{
			Name: Name(rec.Type),
			Data: Decode(rec.Data),
			Time: time.Unix(0, int64(rec.Timestamp*float64(time.Second))),
		}
		r.bus.Dispatch(ev)
	}
	r.log.Info("replay finished", "events", len(events))
	return nil
}

func roundNumber(data map[string]any) int {
	switch v := data["round"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
