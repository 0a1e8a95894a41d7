package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Recorded is one captured event. Timestamps are float64 epoch seconds;
// RelativeTime is seconds since recording started and drives replay pacing.
type Recorded struct {
	Type         string         `json:"type"`
	Data         map[string]any `json:"data,omitempty"`
	Timestamp    float64        `json:"timestamp"`
	RelativeTime float64        `json:"relative_time"`
	Datetime     string         `json:"datetime"`
}

// Summary aggregates a recording for display.
type Summary struct {
	TotalEvents int            `json:"total_events"`
	Duration    float64        `json:"duration"`
	StartTime   float64        `json:"start_time"`
	EventTypes  map[string]int `json:"event_types"`
}

// RecorderState is the recorder's full serializable state.
type RecorderState struct {
	Enabled   bool       `json:"enabled"`
	StartTime float64    `json:"start_time"`
	Events    []Recorded `json:"events"`
}

// Recorder captures emitted events in order with relative timestamps. It is
// a checkpointable component: a checkpoint is the event count, and restoring
// truncates the log back to it. Restoring never reorders or rewrites events.
type Recorder struct {
	enabled   bool
	startTime float64
	events    []Recorded
	log       *slog.Logger
}

// NewRecorder creates a recorder. A disabled recorder ignores every record
// call but still answers queries over whatever it holds.
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{
		enabled: enabled,
		log:     slog.With("component", "recorder"),
	}
}

// Subscribe wires the recorder to every task lifecycle event on the bus.
func (r *Recorder) Subscribe(bus *Bus) {
	names := []Name{
		TaskStart, TaskEnd, RoundStart, RoundEnd,
		QueryStart, ResponseComplete, ParseReply,
		ExecStart, ExecResult,
		RuntimeMessage, RuntimeInput, ShowImage, Exception,
	}
	for _, name := range names {
		bus.OnEvent(name, r.Record)
	}
}

// StartRecording clears the log, marks the start time, and writes the
// recording start marker.
func (r *Recorder) StartRecording() {
	r.events = nil
	r.startTime = epochNow()
	r.RecordEvent(string(RecordingStart), nil, r.startTime)
	r.log.Info("recording started")
}

// StopRecording writes the recording end marker.
func (r *Recorder) StopRecording() {
	r.RecordEvent(string(RecordingEnd), nil, 0)
	r.log.Info("recording stopped", "events", len(r.events))
}

// Record captures a bus event. Registered as the handler for every lifecycle
// event name.
func (r *Recorder) Record(ev Event) {
	ts := 0.0
	if !ev.Time.IsZero() {
		ts = epoch(ev.Time)
	}
	r.RecordEvent(string(ev.Name), ev.Data, ts)
}

// RecordEvent captures one event. A zero timestamp means now. The payload is
// converted to its JSON-safe encoded form at capture time so the log is
// always serializable.
func (r *Recorder) RecordEvent(eventType string, data map[string]any, timestamp float64) {
	if !r.enabled {
		return
	}
	if timestamp == 0 {
		timestamp = epochNow()
	}
	rel := 0.0
	if r.startTime > 0 {
		rel = timestamp - r.startTime
	}
	r.events = append(r.events, Recorded{
		Type:         eventType,
		Data:         Encode(data),
		Timestamp:    timestamp,
		RelativeTime: rel,
		Datetime:     time.Unix(0, int64(timestamp*float64(time.Second))).Format(time.RFC3339Nano),
	})
}

// Events returns the recorded log in capture order.
func (r *Recorder) Events() []Recorded {
	return r.events
}

// EventsByType returns recorded events of one type, in capture order.
func (r *Recorder) EventsByType(eventType string) []Recorded {
	var out []Recorded
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// EventsInRange returns events whose relative time falls within [lo, hi],
// inclusive on both ends.
func (r *Recorder) EventsInRange(lo, hi float64) []Recorded {
	var out []Recorded
	for _, ev := range r.events {
		if ev.RelativeTime >= lo && ev.RelativeTime <= hi {
			out = append(out, ev)
		}
	}
	return out
}

// Summary aggregates the recording. An empty recording reports zero events,
// zero duration, and an empty type map.
func (r *Recorder) Summary() Summary {
	s := Summary{EventTypes: make(map[string]int)}
	if len(r.events) == 0 {
		return s
	}
	s.TotalEvents = len(r.events)
	s.Duration = r.events[len(r.events)-1].RelativeTime
	s.StartTime = r.startTime
	for _, ev := range r.events {
		s.EventTypes[ev.Type]++
	}
	return s
}

// Checkpoint returns the current event count.
func (r *Recorder) Checkpoint() any {
	return len(r.events)
}

// RestoreCheckpoint truncates the log back to a previous checkpoint. A nil
// checkpoint resets to pristine. A count at or beyond the current length is
// a no-op: restoring is truncate-only.
func (r *Recorder) RestoreCheckpoint(cp any) {
	if cp == nil {
		r.events = nil
		r.startTime = 0
		return
	}
	n, ok := checkpointCount(cp)
	if !ok {
		r.log.Warn("ignoring malformed checkpoint", "checkpoint", cp)
		return
	}
	if n < 0 {
		n = 0
	}
	if n < len(r.events) {
		r.events = r.events[:n]
	}
}

// State returns the recorder's full serializable state.
func (r *Recorder) State() RecorderState {
	events := make([]Recorded, len(r.events))
	copy(events, r.events)
	return RecorderState{
		Enabled:   r.enabled,
		StartTime: r.startTime,
		Events:    events,
	}
}

// RestoreState replaces the recorder's state verbatim, including relative
// times anchored to the original start time.
func (r *Recorder) RestoreState(st RecorderState) {
	r.enabled = st.Enabled
	r.startTime = st.StartTime
	r.events = make([]Recorded, len(st.Events))
	copy(r.events, st.Events)
}

// exportFile is the on-disk envelope for a recording.
type exportFile struct {
	Metadata exportMetadata `json:"metadata"`
	Events   []Recorded     `json:"events"`
}

type exportMetadata struct {
	StartTime   float64 `json:"start_time"`
	TotalEvents int     `json:"total_events"`
	Duration    float64 `json:"duration"`
}

// Export writes the recording to path as indented JSON.
func (r *Recorder) Export(path string) error {
	s := r.Summary()
	out := exportFile{
		Metadata: exportMetadata{
			StartTime:   r.startTime,
			TotalEvents: s.TotalEvents,
			Duration:    s.Duration,
		},
		Events: r.events,
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	r.log.Info("recording exported", "path", path, "events", s.TotalEvents)
	return nil
}

// Import loads a recording previously written by Export, replacing the
// current log.
func (r *Recorder) Import(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	var in exportFile
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode recording: %w", err)
	}
	r.startTime = in.Metadata.StartTime
	r.events = in.Events
	r.log.Info("recording imported", "path", path, "events", len(r.events))
	return nil
}

// LoadRecording reads an exported recording without a recorder.
func LoadRecording(path string) ([]Recorded, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	var in exportFile
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return in.Events, nil
}

func checkpointCount(cp any) (int, bool) {
	switch v := cp.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func epochNow() float64 {
	return epoch(time.Now())
}
