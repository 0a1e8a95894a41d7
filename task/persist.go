package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"codeloop/block"
	"codeloop/event"
	"codeloop/exec"
	"codeloop/llm"
)

// TaskDataVersion tags the on-disk task schema.
const TaskDataVersion = 1

// TaskFileName is the task state file written under the work directory.
const TaskFileName = "task.json"

// TaskData is the persisted form of a task: its identity, step metadata, the
// versioned block history, and each trackable's own state.
type TaskData struct {
	TaskID         string             `json:"task_id"`
	Version        int                `json:"version"`
	Instruction    string             `json:"instruction"`
	StartTime      float64            `json:"start_time"`
	Steps          []Step             `json:"steps"`
	Blocks         []*block.CodeBlock `json:"blocks"`
	ComponentState ComponentState     `json:"component_state"`
}

// ComponentState carries the trackables' persisted state. Executions travel
// in their tagged codec form so results decode back to the right variant.
type ComponentState struct {
	Events     event.RecorderState `json:"events"`
	Executions []map[string]any    `json:"executions"`
	History    []llm.Message       `json:"history"`
}

// Data snapshots the task for persistence.
func (t *Task) Data() TaskData {
	executions := t.executor.State()
	encoded := make([]map[string]any, len(executions))
	for i, x := range executions {
		encoded[i] = exec.EncodeExecution(x)
	}
	return TaskData{
		TaskID:      t.ID,
		Version:     TaskDataVersion,
		Instruction: t.Instruction,
		StartTime:   float64(t.StartTime.UnixNano()) / 1e9,
		Steps:       t.steps.State(),
		Blocks:      t.blocks.History,
		ComponentState: ComponentState{
			Events:     t.recorder.State(),
			Executions: encoded,
			History:    t.history.State(),
		},
	}
}

// Save writes the task state file under the work directory.
func (t *Task) Save() error {
	if t.workDir == "" {
		return fmt.Errorf("task %s has no work directory", t.ID)
	}
	if err := os.MkdirAll(t.workDir, 0o755); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	raw, err := json.MarshalIndent(t.Data(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	path := filepath.Join(t.workDir, TaskFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write task: %w", err)
	}
	t.log.Info("task saved", "path", path)
	return nil
}

// Restore loads persisted state into the task. Trackables are restored
// before the step manager's list, since the manager holds only checkpoint
// handles.
func (t *Task) Restore(data TaskData) error {
	if data.Version > TaskDataVersion {
		return fmt.Errorf("task file version %d is newer than supported %d", data.Version, TaskDataVersion)
	}
	t.ID = data.TaskID
	t.Instruction = data.Instruction
	t.log = t.log.With("task_id", t.ID)

	t.blocks.History = data.Blocks
	t.blocks.Reindex()

	executions := make([]exec.Execution, 0, len(data.ComponentState.Executions))
	for i, m := range data.ComponentState.Executions {
		x, ok := exec.DecodeExecution(m)
		if !ok {
			return fmt.Errorf("task file: malformed execution %d", i)
		}
		executions = append(executions, x)
	}
	t.executor.RestoreState(executions)
	t.recorder.RestoreState(data.ComponentState.Events)
	t.history.RestoreState(data.ComponentState.History)

	t.steps.RestoreState(data.Steps)
	return nil
}

// LoadData reads a task state file.
func LoadData(path string) (TaskData, error) {
	var data TaskData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("read task file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode task file: %w", err)
	}
	return data, nil
}
