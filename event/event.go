// Package event implements the lifecycle event core: a typed publish/subscribe
// bus, a recorder that captures every emitted event with relative timestamps,
// a versioned payload codec, and a replay engine that re-emits a recorded log
// against fresh subscribers at scaled timing.
package event

import "time"

// Name identifies the type of a lifecycle event.
type Name string

// Task lifecycle events emitted by the task loop.
const (
	TaskStart        Name = "task_start"
	TaskEnd          Name = "task_end"
	RoundStart       Name = "round_start"
	RoundEnd         Name = "round_end"
	QueryStart       Name = "query_start"
	ResponseComplete Name = "response_complete"
	ParseReply       Name = "parse_reply"
	ExecStart        Name = "exec"
	ExecResult       Name = "exec_result"
	RuntimeMessage   Name = "runtime_message"
	RuntimeInput     Name = "runtime_input"
	ShowImage        Name = "show_image"
	Exception        Name = "exception"
)

// Recording markers written by the recorder itself.
const (
	RecordingStart Name = "recording_start"
	RecordingEnd   Name = "recording_end"
)

// Event is a single lifecycle event. Immutable once emitted.
type Event struct {
	Name Name           `json:"name"`
	Data map[string]any `json:"data,omitempty"`
	Time time.Time      `json:"time"`
}

// Get returns a data field, or nil when absent.
func (e Event) Get(key string) any {
	if e.Data == nil {
		return nil
	}
	return e.Data[key]
}

// GetString returns a string data field, or "" when absent or not a string.
func (e Event) GetString(key string) string {
	s, _ := e.Get(key).(string)
	return s
}
