package task

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeloop/event"
	execpkg "codeloop/exec"
	"codeloop/llm"
)

// scriptedClient replays canned replies in order, then errors.
type scriptedClient struct {
	replies []string
	calls   int
	err     error
}

func (c *scriptedClient) Chat(_ context.Context, _ []llm.Message) (*llm.Reply, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.calls >= len(c.replies) {
		return nil, errors.New("script exhausted")
	}
	reply := c.replies[c.calls]
	c.calls++
	return &llm.Reply{Content: reply}, nil
}

func newTestTask(t *testing.T, client llm.Client) (*Task, *event.Recorder) {
	t.Helper()
	bus := event.NewBus()
	recorder := event.NewRecorder(true)
	recorder.Subscribe(bus)
	return New(Config{
		Client:   client,
		Bus:      bus,
		Recorder: recorder,
		Executor: execpkg.NewBlockExecutor(),
		WorkDir:  t.TempDir(),
	}), recorder
}

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestRunPlainReplyIsTerminal(t *testing.T) {
	client := &scriptedClient{replies: []string{"No code needed, you are done."}}
	task, recorder := newTestTask(t, client)

	require.NoError(t, task.Run(context.Background(), "check the weather"))

	assert.Equal(t, 1, client.calls)
	// Terminal plain-text round still commits a step.
	require.Len(t, task.Steps().Steps(), 1)
	assert.Equal(t, 1, task.Steps().Steps()[0].Round)

	s := recorder.Summary()
	assert.Equal(t, 1, s.EventTypes["task_start"])
	assert.Equal(t, 1, s.EventTypes["round_start"])
	assert.Equal(t, 1, s.EventTypes["response_complete"])
	assert.Equal(t, 1, s.EventTypes["round_end"])
	assert.Equal(t, 1, s.EventTypes["task_end"])
	assert.Zero(t, s.EventTypes["exec"])
}

func TestRunExecutesBlocksAndFeedsBack(t *testing.T) {
	requireCommand(t, "bash")
	client := &scriptedClient{replies: []string{
		"Run this:\n```bash name=greet\necho hello\n```",
		"Looks good, we are done.",
	}}
	task, recorder := newTestTask(t, client)

	require.NoError(t, task.Run(context.Background(), "say hello"))

	assert.Equal(t, 2, client.calls)
	assert.Len(t, task.Steps().Steps(), 2)

	// The block landed in the store and was executed.
	require.NotNil(t, task.Blocks().Get("greet"))
	history := task.History().Messages()
	// user instruction, assistant reply, user feedback, assistant terminal.
	require.Len(t, history, 4)
	assert.Equal(t, llm.RoleUser, history[2].Role)
	assert.Contains(t, history[2].Content, "greet")
	assert.Contains(t, history[2].Content, "hello")

	s := recorder.Summary()
	assert.Equal(t, 1, s.EventTypes["exec"])
	assert.Equal(t, 1, s.EventTypes["exec_result"])
	assert.Equal(t, 2, s.EventTypes["round_start"])
}

func TestRunErrorResultFeedsBack(t *testing.T) {
	requireCommand(t, "bash")
	client := &scriptedClient{replies: []string{
		"```bash\nexit 7\n```",
		"I see the failure, stopping.",
	}}
	task, _ := newTestTask(t, client)

	require.NoError(t, task.Run(context.Background(), "fail once"))

	// The non-zero exit came back to the model as feedback, not as an error.
	history := task.History().Messages()
	require.GreaterOrEqual(t, len(history), 3)
	assert.Contains(t, history[2].Content, "returncode")
	assert.Contains(t, history[2].Content, "7")
}

func TestRunLLMFailureIsTerminal(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	task, recorder := newTestTask(t, client)

	require.NoError(t, task.Run(context.Background(), "anything"))

	// No content means no step; the failure surfaced as an exception event.
	assert.Empty(t, task.Steps().Steps())
	s := recorder.Summary()
	assert.Equal(t, 1, s.EventTypes["exception"])
	assert.Equal(t, 1, s.EventTypes["task_end"])
}

func TestRunBoundedByMaxRounds(t *testing.T) {
	requireCommand(t, "bash")
	// Every reply carries a block, so only the round budget stops the loop.
	client := &scriptedClient{replies: []string{
		"```bash\ntrue\n```",
		"```bash\ntrue\n```",
		"```bash\ntrue\n```",
		"```bash\ntrue\n```",
	}}
	bus := event.NewBus()
	recorder := event.NewRecorder(true)
	task := New(Config{
		Client:    client,
		Bus:       bus,
		Recorder:  recorder,
		Executor:  execpkg.NewBlockExecutor(),
		WorkDir:   t.TempDir(),
		MaxRounds: 2,
	})

	require.NoError(t, task.Run(context.Background(), "loop forever"))
	assert.Equal(t, 2, client.calls)
	assert.Len(t, task.Steps().Steps(), 2)
}

func TestTaskPersistenceRoundTrip(t *testing.T) {
	requireCommand(t, "bash")
	client := &scriptedClient{replies: []string{
		"```bash name=work\necho persisted\n```",
		"Done.",
	}}
	task, _ := newTestTask(t, client)
	require.NoError(t, task.Run(context.Background(), "persist me"))
	require.NoError(t, task.Save())

	data, err := LoadData(filepath.Join(task.workDir, TaskFileName))
	require.NoError(t, err)
	assert.Equal(t, task.ID, data.TaskID)
	assert.Equal(t, TaskDataVersion, data.Version)
	assert.Equal(t, "persist me", data.Instruction)

	fresh, _ := newTestTask(t, client)
	require.NoError(t, fresh.Restore(data))

	assert.Equal(t, task.ID, fresh.ID)
	assert.Equal(t, task.History().Messages(), fresh.History().Messages())
	assert.Equal(t, len(task.Steps().Steps()), len(fresh.Steps().Steps()))
	require.NotNil(t, fresh.Blocks().Get("work"))
	require.Len(t, fresh.executor.History(), 1)
	assert.Equal(t, "work", fresh.executor.History()[0].Block.Name)
}

func TestTaskRollbackAfterRun(t *testing.T) {
	requireCommand(t, "bash")
	client := &scriptedClient{replies: []string{
		"```bash\necho round one\n```",
		"```bash\necho round two\n```",
		"All finished.",
	}}
	task, _ := newTestTask(t, client)
	require.NoError(t, task.Run(context.Background(), "two rounds"))
	require.Len(t, task.Steps().Steps(), 3)

	histAfterStep0 := task.Steps().Steps()[0].Checkpoints["history"]
	require.NoError(t, task.Steps().DeleteStep(1))

	assert.Len(t, task.Steps().Steps(), 1)
	assert.Equal(t, histAfterStep0, task.History().Checkpoint())
	assert.Len(t, task.executor.History(), 1)
}

func TestStepsChainResponses(t *testing.T) {
	client := &scriptedClient{replies: []string{"plain answer"}}
	task, _ := newTestTask(t, client)
	require.NoError(t, task.Run(context.Background(), "q"))
	require.Len(t, task.Steps().Steps(), 1)
	assert.Equal(t, "plain answer", task.Steps().Steps()[0].Response)
	assert.Equal(t, "q", task.Steps().Steps()[0].Instruction)
}
