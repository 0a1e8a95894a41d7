package exec

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"codeloop/block"
)

// driverSource is the in-process side of the Python sandbox. The host feeds
// it one job on stdin; the driver captures the block's stdio, services
// runtime calls over a line-oriented JSON protocol on its real stdio, and
// finishes with a single result line.
//
//go:embed driver.py
var driverSource string

// initImports is the base namespace every Python block starts from.
const initImports = `import os
import re
import sys
import json
import time
import random
import traceback
`

// PythonSession is the explicit shared state between Python block executions
// within one task: the sources of previously executed blocks (importable as
// "from blocks import <name>"), and the environment names handed out by the
// runtime, whose values must be masked out of reported states.
type PythonSession struct {
	initImports string
	blocks      map[string]string
	envs        map[string]string
}

// NewPythonSession creates a pristine session.
func NewPythonSession() *PythonSession {
	return &PythonSession{
		initImports: initImports,
		blocks:      make(map[string]string),
		envs:        make(map[string]string),
	}
}

// AddBlock records a successfully executed block so later blocks can import it.
func (s *PythonSession) AddBlock(name, code string) {
	s.blocks[name] = code
}

// Blocks returns a snapshot of accumulated block sources.
func (s *PythonSession) Blocks() map[string]string {
	out := make(map[string]string, len(s.blocks))
	for k, v := range s.blocks {
		out[k] = v
	}
	return out
}

// RegisterEnv caches an environment value handed to the block. Its name
// becomes a masked key in every subsequent result.
func (s *PythonSession) RegisterEnv(name, value string) {
	s.envs[name] = value
}

// CachedEnv returns a previously answered environment value.
func (s *PythonSession) CachedEnv(name string) (string, bool) {
	v, ok := s.envs[name]
	return v, ok
}

// IsSecret reports whether a state key matches a registered environment name.
func (s *PythonSession) IsSecret(key string) bool {
	_, ok := s.envs[key]
	return ok
}

// PythonExecutor runs Python blocks in an out-of-process CPython driver, one
// process per block. Module-level definitions persist across blocks through
// the session's accumulated sources; nothing else leaks between executions.
type PythonExecutor struct {
	runtime Runtime
	session *PythonSession
	python  string
	timeout time.Duration
	log     *slog.Logger
}

// NewPythonExecutor creates a Python executor bound to a runtime. timeout
// zero means unbounded.
func NewPythonExecutor(rt Runtime, timeout time.Duration) *PythonExecutor {
	return &PythonExecutor{
		runtime: rt,
		session: NewPythonSession(),
		python:  "python3",
		timeout: timeout,
		log:     slog.With("component", "python_executor"),
	}
}

// Session exposes the executor's session, mainly for tests and introspection.
func (e *PythonExecutor) Session() *PythonSession {
	return e.session
}

type driverJob struct {
	Name        string            `json:"name"`
	Code        string            `json:"code"`
	InitImports string            `json:"init_imports"`
	Blocks      map[string]string `json:"blocks"`
}

type driverMsg struct {
	RPC    string         `json:"rpc,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Result *driverResult  `json:"result,omitempty"`
}

type driverResult struct {
	Stdout    string         `json:"stdout"`
	Stderr    string         `json:"stderr"`
	Errstr    string         `json:"errstr"`
	Traceback string         `json:"traceback"`
	States    map[string]any `json:"states"`
}

func (e *PythonExecutor) Execute(b *block.CodeBlock) Result {
	name := b.AbsPath()
	if name == "" {
		name = b.Name
	}
	job := driverJob{
		Name:        name,
		Code:        b.Code,
		InitImports: e.session.initImports,
		Blocks:      e.session.Blocks(),
	}

	res, err := e.runDriver(job)
	if err != nil {
		return &PythonResult{ExecResult: *errorResult(err)}
	}

	result := &PythonResult{
		ExecResult: ExecResult{
			Stdout:    res.Stdout,
			Stderr:    res.Stderr,
			Errstr:    res.Errstr,
			Traceback: res.Traceback,
		},
	}
	if res.States != nil {
		result.States = e.maskStates(res.States)
	}

	if !result.HasError() {
		e.session.AddBlock(b.Name, b.Code)
	}
	return result
}

// runDriver spawns the driver, feeds it the job, services runtime calls, and
// returns the final result line.
func (e *PythonExecutor) runDriver(job driverJob) (*driverResult, error) {
	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.python, "-c", driverSource)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("python driver: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("python driver: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.python, err)
	}

	enc := json.NewEncoder(stdin)
	if err := enc.Encode(job); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("send job: %w", err)
	}

	var final *driverResult
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var msg driverMsg
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			e.log.Warn("unparseable driver line", "error", err)
			continue
		}
		if msg.Result != nil {
			final = msg.Result
			break
		}
		if msg.RPC != "" {
			value := e.handleRPC(msg.RPC, msg.Params)
			if err := enc.Encode(map[string]any{"value": value}); err != nil {
				break
			}
		}
	}

	_, _ = io.Copy(io.Discard, stdout)
	_ = stdin.Close()
	waitErr := cmd.Wait()

	if ctx.Err() == context.DeadlineExceeded {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return nil, fmt.Errorf("execution timed out after %s", e.timeout)
	}
	if final == nil {
		if waitErr != nil {
			return nil, fmt.Errorf("python driver exited: %w", waitErr)
		}
		return nil, fmt.Errorf("python driver produced no result")
	}
	return final, nil
}

// handleRPC services one runtime call from the driver.
func (e *PythonExecutor) handleRPC(method string, params map[string]any) any {
	switch method {
	case "install_packages":
		var names []string
		if raw, ok := params["packages"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					names = append(names, s)
				}
			}
		}
		return e.runtime.InstallPackages(names...)
	case "get_env":
		name, _ := params["name"].(string)
		def, _ := params["default"].(string)
		desc, _ := params["desc"].(string)
		if cached, ok := e.session.CachedEnv(name); ok {
			return cached
		}
		value := e.runtime.GetEnv(name, def, desc)
		e.session.RegisterEnv(name, value)
		return value
	case "show_image":
		path, _ := params["path"].(string)
		url, _ := params["url"].(string)
		e.runtime.ShowImage(path, url)
		return nil
	case "input":
		prompt, _ := params["prompt"].(string)
		value, err := e.runtime.Input(prompt)
		if err != nil {
			return ""
		}
		return value
	default:
		e.log.Warn("unknown runtime call", "method", method)
		return nil
	}
}

// maskStates replaces any value whose key matches a registered environment
// name with a placeholder, recursively.
func (e *PythonExecutor) maskStates(states map[string]any) map[string]any {
	masked := make(map[string]any, len(states))
	for k, v := range states {
		if e.session.IsSecret(k) {
			masked[k] = "<masked>"
			continue
		}
		masked[k] = maskValue(v, e.session)
	}
	return masked
}

func maskValue(v any, s *PythonSession) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if s.IsSecret(k) {
				out[k] = "<masked>"
				continue
			}
			out[k] = maskValue(inner, s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = maskValue(inner, s)
		}
		return out
	default:
		return v
	}
}
