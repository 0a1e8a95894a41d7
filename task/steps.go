// Package task ties the core together: the Trackable rollback contract, the
// step manager, conversation history, reply parsing, the agent loop, and
// task persistence.
package task

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrStepOutOfRange signals a delete for a step index that does not exist.
// The step list is left untouched when it is returned.
var ErrStepOutOfRange = errors.New("step index out of range")

// Trackable is anything whose state can be snapshotted and rolled back as
// part of a multi-component checkpoint. A checkpoint is opaque to everyone
// but its owner. Restoring a trackable's own current checkpoint is a no-op;
// restoring nil returns it to pristine.
type Trackable interface {
	Checkpoint() any
	RestoreCheckpoint(cp any)
}

// Step is one completed conversational round with a checkpoint per tracked
// component. Steps are only ever appended or truncated from the tail.
type Step struct {
	Instruction string         `json:"instruction"`
	Round       int            `json:"round"`
	Response    string         `json:"response"`
	Timestamp   float64        `json:"timestamp"`
	Checkpoints map[string]any `json:"checkpoints"`
}

// StepManager makes the state spread across independently-owned trackables
// (conversation history, execution history, event log) rewindable as one
// atomic unit keyed by step index. It holds trackables by reference; it never
// owns them.
type StepManager struct {
	trackables map[string]Trackable
	steps      []Step
	log        *slog.Logger
}

// NewStepManager creates an empty step manager.
func NewStepManager() *StepManager {
	return &StepManager{
		trackables: make(map[string]Trackable),
		log:        slog.With("component", "steps"),
	}
}

// RegisterTrackable adds a named component to the managed set. Registration
// order does not matter; the name keys the component's slot in every step's
// checkpoint map.
func (m *StepManager) RegisterTrackable(name string, t Trackable) {
	m.trackables[name] = t
}

// CreateCheckpoint snapshots every registered trackable and appends a Step.
// Called exactly once per completed round, after the round's side effects are
// final.
func (m *StepManager) CreateCheckpoint(instruction string, round int, response string) Step {
	checkpoints := make(map[string]any, len(m.trackables))
	for name, t := range m.trackables {
		checkpoints[name] = t.Checkpoint()
	}
	step := Step{
		Instruction: instruction,
		Round:       round,
		Response:    response,
		Timestamp:   float64(time.Now().UnixNano()) / float64(time.Second),
		Checkpoints: checkpoints,
	}
	m.steps = append(m.steps, step)
	m.log.Info("checkpoint created", "step", len(m.steps)-1, "round", round)
	return step
}

// DeleteStep rewinds to just before step index was created: every trackable
// is restored to the previous step's checkpoint (pristine when index == 0),
// then the step list is truncated to [:index].
func (m *StepManager) DeleteStep(index int) error {
	if index < 0 || index >= len(m.steps) {
		return fmt.Errorf("%w: %d (have %d steps)", ErrStepOutOfRange, index, len(m.steps))
	}

	var prev map[string]any
	if index > 0 {
		prev = m.steps[index-1].Checkpoints
	}
	for name, t := range m.trackables {
		if prev == nil {
			t.RestoreCheckpoint(nil)
			continue
		}
		t.RestoreCheckpoint(prev[name])
	}

	m.steps = m.steps[:index]
	m.log.Info("steps deleted", "from", index)
	return nil
}

// ClearAll restores every trackable to pristine and empties the step list.
func (m *StepManager) ClearAll() {
	for _, t := range m.trackables {
		t.RestoreCheckpoint(nil)
	}
	m.steps = nil
	m.log.Info("all steps cleared")
}

// Steps returns the step list in order.
func (m *StepManager) Steps() []Step {
	return m.steps
}

// State returns the step metadata for persistence. Trackables persist their
// own state independently and must be restored before RestoreState is called:
// the manager keeps checkpoint handles, not trackable contents.
func (m *StepManager) State() []Step {
	out := make([]Step, len(m.steps))
	copy(out, m.steps)
	return out
}

// RestoreState replaces the step list.
func (m *StepManager) RestoreState(steps []Step) {
	m.steps = make([]Step, len(steps))
	copy(m.steps, steps)
}
