// Package exec executes code blocks behind a uniform interface: one executor
// per language, captured stdio, structured results, and an execution history
// that participates in task checkpointing. This package is the only place
// model-generated code is ever invoked.
package exec

import "fmt"

// Result is the outcome of executing one code block. Executors always return
// a Result; failures are carried as fields, never as Go errors.
type Result interface {
	// HasError reports whether the execution failed. It is computed from the
	// result fields, never stored.
	HasError() bool
	// Kind returns the codec tag for this result variant.
	Kind() string
}

// ExecResult is the base result shape shared by all executors.
type ExecResult struct {
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Errstr    string `json:"errstr,omitempty"`
	Traceback string `json:"traceback,omitempty"`
}

func (r *ExecResult) HasError() bool {
	return r.Errstr != "" || r.Traceback != "" || r.Stderr != ""
}

func (r *ExecResult) Kind() string { return "exec_result" }

// ProcessResult is produced by subprocess-backed executors.
type ProcessResult struct {
	ExecResult
	ReturnCode int `json:"returncode"`
}

func (r *ProcessResult) HasError() bool {
	return r.ReturnCode != 0 || r.ExecResult.HasError()
}

func (r *ProcessResult) Kind() string { return "process_result" }

// PythonResult is produced by the Python executor. States carries the
// filtered, masked variables the block reported; States["success"] is the
// explicit success flag, defaulting to failure when the block raised.
type PythonResult struct {
	ExecResult
	States map[string]any `json:"states,omitempty"`
}

func (r *PythonResult) HasError() bool {
	if r.ExecResult.HasError() {
		return true
	}
	success, ok := r.States["success"].(bool)
	return !ok || !success
}

func (r *PythonResult) Kind() string { return "python_result" }

func errorResult(err error) *ExecResult {
	return &ExecResult{Errstr: fmt.Sprint(err)}
}
