package exec

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"codeloop/block"
)

// DefaultSubprocessTimeout bounds subprocess-backed executions.
const DefaultSubprocessTimeout = 30 * time.Second

// Executor runs a single code block and always returns a structured result.
type Executor interface {
	Execute(b *block.CodeBlock) Result
}

// Execution pairs a block with its result in the executor history.
type Execution struct {
	Block  *block.CodeBlock `json:"block"`
	Result Result           `json:"result"`
}

// BlockExecutor dispatches blocks to language-specific executors. Executors
// are constructed lazily, at most one per language, and bound to the runtime
// registered for that language. Unrecognized languages are not fatal: the
// caller gets a stub error result and no registry entry is created.
type BlockExecutor struct {
	// SubprocessTimeout applies to bash/powershell/applescript/node blocks.
	SubprocessTimeout time.Duration
	// PythonTimeout bounds Python blocks. Zero means unbounded; see DESIGN.md
	// for the tradeoff.
	PythonTimeout time.Duration

	runtimes  map[block.Language]Runtime
	executors map[block.Language]Executor
	history   []Execution
	log       *slog.Logger
}

// NewBlockExecutor creates a dispatcher with default timeouts.
func NewBlockExecutor() *BlockExecutor {
	return &BlockExecutor{
		SubprocessTimeout: DefaultSubprocessTimeout,
		runtimes:          make(map[block.Language]Runtime),
		executors:         make(map[block.Language]Executor),
		log:               slog.With("component", "block_executor"),
	}
}

// SetRuntime registers the runtime collaborator for a language. Supplied once
// externally; re-registration for the same language is refused so the session
// an executor accumulated is never silently dropped.
func (e *BlockExecutor) SetRuntime(lang block.Language, rt Runtime) {
	if _, ok := e.runtimes[lang]; ok {
		e.log.Warn("runtime already registered", "language", string(lang))
		return
	}
	e.runtimes[lang] = rt
}

// SetPythonRuntime registers the runtime used by Python blocks.
func (e *BlockExecutor) SetPythonRuntime(rt Runtime) {
	e.SetRuntime(block.LangPython, rt)
}

// Executor returns the executor for a block's language, constructing it on
// first use. Returns nil for unrecognized languages.
func (e *BlockExecutor) Executor(b *block.CodeBlock) Executor {
	lang := b.Language
	if ex, ok := e.executors[lang]; ok {
		return ex
	}
	ex := e.build(lang)
	if ex == nil {
		e.log.Warn("no executor for language", "language", string(lang))
		return nil
	}
	e.executors[lang] = ex
	return ex
}

func (e *BlockExecutor) build(lang block.Language) Executor {
	switch lang {
	case block.LangPython:
		rt := e.runtimes[lang]
		if rt == nil {
			rt = noopRuntime{}
		}
		return NewPythonExecutor(rt, e.PythonTimeout)
	case block.LangBash:
		return newSubprocessExecutor(lang, []string{"bash"}, e.SubprocessTimeout)
	case block.LangPowerShell:
		return newSubprocessExecutor(lang, []string{"powershell", "-Command"}, e.SubprocessTimeout)
	case block.LangAppleScript:
		return newSubprocessExecutor(lang, []string{"osascript"}, e.SubprocessTimeout)
	case block.LangJavaScript:
		return newSubprocessExecutor(lang, []string{"node"}, e.SubprocessTimeout)
	case block.LangHTML:
		return &HTMLExecutor{}
	default:
		return nil
	}
}

// Run executes a block, appends the execution to history, and returns the
// result. Executor panics are converted to errstr+traceback results; nothing
// raised inside an executor ever reaches the task loop.
func (e *BlockExecutor) Run(b *block.CodeBlock) Result {
	e.log.Info("exec block", "name", b.Name, "language", string(b.Language), "version", b.Version)
	var result Result
	if ex := e.Executor(b); ex != nil {
		result = e.safeExecute(ex, b)
	} else {
		result = &ExecResult{Stderr: fmt.Sprintf("ignoring unsupported block %s: language %q", b.Name, b.Language)}
	}
	e.history = append(e.history, Execution{Block: b, Result: result})
	return result
}

func (e *BlockExecutor) safeExecute(ex Executor, b *block.CodeBlock) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = &ExecResult{
				Errstr:    fmt.Sprint(r),
				Traceback: string(debug.Stack()),
			}
		}
	}()
	return ex.Execute(b)
}

// History returns the executions recorded so far.
func (e *BlockExecutor) History() []Execution {
	return e.history
}

// Checkpoint returns the current history length.
func (e *BlockExecutor) Checkpoint() any {
	return len(e.history)
}

// RestoreCheckpoint truncates history back to a prior checkpoint. A nil
// checkpoint clears everything; a length at or beyond the current size is a
// no-op (history never grows from a restore).
func (e *BlockExecutor) RestoreCheckpoint(cp any) {
	if cp == nil {
		e.history = nil
		return
	}
	n, ok := checkpointLen(cp)
	if !ok {
		e.log.Warn("ignoring malformed checkpoint", "checkpoint", cp)
		return
	}
	if n < len(e.history) {
		e.history = e.history[:n]
	}
}

// State returns the history for persistence.
func (e *BlockExecutor) State() []Execution {
	out := make([]Execution, len(e.history))
	copy(out, e.history)
	return out
}

// RestoreState replaces the history with persisted executions.
func (e *BlockExecutor) RestoreState(history []Execution) {
	e.history = make([]Execution, len(history))
	copy(e.history, history)
}

// checkpointLen normalizes a checkpoint value to an int. Checkpoints travel
// through JSON, which turns ints into float64.
func checkpointLen(cp any) (int, bool) {
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
