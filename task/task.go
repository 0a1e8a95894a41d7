package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"codeloop/block"
	"codeloop/event"
	"codeloop/exec"
	"codeloop/llm"
)

// DefaultMaxRounds bounds the send/execute/feedback loop per instruction.
const DefaultMaxRounds = 16

// Config assembles a task from its collaborators.
type Config struct {
	Client       llm.Client
	Bus          *event.Bus
	Recorder     *event.Recorder
	Executor     *exec.BlockExecutor
	SystemPrompt string
	WorkDir      string
	MaxRounds    int
	// Model is used for token accounting in round summaries only.
	Model string
}

// Task runs one instruction-driven conversation: send the instruction, parse
// the reply for executable blocks, run them, feed results back, repeat until
// a reply carries no blocks. Every phase emits an event; the recorder,
// executor, and history are registered as trackables so any step can be
// rolled back atomically.
type Task struct {
	ID          string
	Instruction string
	StartTime   time.Time

	client    llm.Client
	bus       *event.Bus
	recorder  *event.Recorder
	executor  *exec.BlockExecutor
	history   *History
	blocks    *block.Store
	steps     *StepManager
	workDir   string
	maxRounds int
	model     string
	log       *slog.Logger
}

// New creates a task and wires its trackables into the step manager.
func New(cfg Config) *Task {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	t := &Task{
		ID:        uuid.New().String(),
		StartTime: time.Now(),
		client:    cfg.Client,
		bus:       cfg.Bus,
		recorder:  cfg.Recorder,
		executor:  cfg.Executor,
		history:   NewHistory(cfg.SystemPrompt),
		blocks:    block.NewStore(),
		steps:     NewStepManager(),
		workDir:   cfg.WorkDir,
		maxRounds: cfg.MaxRounds,
		model:     cfg.Model,
	}
	t.log = slog.With("component", "task", "task_id", t.ID)

	t.steps.RegisterTrackable("history", t.history)
	t.steps.RegisterTrackable("executor", t.executor)
	t.steps.RegisterTrackable("recorder", t.recorder)
	return t
}

// Steps exposes the step manager for rollback commands.
func (t *Task) Steps() *StepManager { return t.steps }

// WorkDir returns the directory blocks and task state are written to.
func (t *Task) WorkDir() string { return t.workDir }

// Blocks exposes the versioned block store.
func (t *Task) Blocks() *block.Store { return t.blocks }

// History exposes the conversation transcript.
func (t *Task) History() *History { return t.history }

// Run executes one instruction to completion. The returned error covers loop
// infrastructure only; model and execution failures are events and feedback,
// never errors.
func (t *Task) Run(ctx context.Context, instruction string) error {
	t.Instruction = instruction
	t.recorder.StartRecording()
	t.bus.Emit(event.TaskStart, map[string]any{
		"task_id":     t.ID,
		"instruction": instruction,
	})

	t.history.Add(llm.RoleUser, instruction)

	for round := 1; round <= t.maxRounds; round++ {
		roundStart := time.Now()
		t.bus.Emit(event.RoundStart, map[string]any{"round": round})

		reply, ok := t.query(ctx, round)
		if !ok {
			// LLM failure is "no content": terminal for this instruction.
			t.emitRoundEnd(round, 0, roundStart)
			break
		}
		t.history.Add(llm.RoleAssistant, reply)

		blocks := ParseReply(reply)
		t.bus.Emit(event.ParseReply, map[string]any{
			"round":  round,
			"blocks": len(blocks),
		})

		if len(blocks) == 0 {
			t.emitRoundEnd(round, 0, roundStart)
			t.steps.CreateCheckpoint(instruction, round, reply)
			break
		}

		feedback := t.execute(blocks)
		t.history.Add(llm.RoleUser, feedback)

		t.emitRoundEnd(round, len(blocks), roundStart)
		t.steps.CreateCheckpoint(instruction, round, reply)
	}

	t.bus.Emit(event.TaskEnd, map[string]any{
		"task_id": t.ID,
		"steps":   len(t.steps.Steps()),
	})
	t.recorder.StopRecording()
	return nil
}

// query sends the transcript to the model. Failures are logged and surfaced
// as an exception event; ok is false when there is no content to parse.
func (t *Task) query(ctx context.Context, round int) (string, bool) {
	t.bus.Emit(event.QueryStart, map[string]any{"round": round})

	reply, err := t.client.Chat(ctx, t.history.Messages())
	if err != nil {
		t.log.Error("model call failed", "round", round, "error", err)
		t.bus.Emit(event.Exception, map[string]any{
			"round": round,
			"error": err,
		})
		return "", false
	}
	if reply == nil || strings.TrimSpace(reply.Content) == "" {
		t.log.Warn("model returned no content", "round", round)
		return "", false
	}

	data := map[string]any{"round": round, "content": reply.Content}
	if reply.Reasoning != "" {
		data["reasoning"] = reply.Reasoning
	}
	t.bus.Emit(event.ResponseComplete, data)
	return reply.Content, true
}

// execute saves and runs each block in source order and returns the
// concatenated feedback for the next user turn.
func (t *Task) execute(blocks []*block.CodeBlock) string {
	var sections []string
	for _, b := range blocks {
		t.blocks.Add(b)
		if t.workDir != "" {
			if err := b.Save(t.workDir); err != nil {
				t.log.Error("block save failed", "name", b.Name, "error", err)
			}
		}

		t.bus.Emit(event.ExecStart, map[string]any{"block": b})
		result := t.executor.Run(b)
		t.bus.Emit(event.ExecResult, map[string]any{
			"block_name": b.Name,
			"result":     result,
		})

		sections = append(sections, formatFeedback(b, result))
	}
	return strings.Join(sections, "\n\n")
}

// emitRoundEnd emits the round summary.
func (t *Task) emitRoundEnd(round, blocks int, started time.Time) {
	t.bus.Emit(event.RoundEnd, map[string]any{
		"round":   round,
		"blocks":  blocks,
		"elapsed": time.Since(started).Seconds(),
		"tokens":  llm.CountHistoryTokens(t.model, t.history.Messages()),
	})
}

// formatFeedback renders one execution result for the model.
func formatFeedback(b *block.CodeBlock, result exec.Result) string {
	raw, err := json.MarshalIndent(exec.EncodeResult(result), "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"errstr": %q}`, err.Error()))
	}
	return fmt.Sprintf("Result of block `%s` (v%d, %s):\n```json\n%s\n```",
		b.Name, b.Version, b.Language, raw)
}
