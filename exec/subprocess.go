package exec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"codeloop/block"
)

// subprocessExecutor runs a block by appending its on-disk path to a fixed
// interpreter command. One instance per language, shared nothing between
// invocations beyond the filesystem.
type subprocessExecutor struct {
	lang    block.Language
	command []string
	timeout time.Duration
	log     *slog.Logger
}

func newSubprocessExecutor(lang block.Language, command []string, timeout time.Duration) *subprocessExecutor {
	if timeout <= 0 {
		timeout = DefaultSubprocessTimeout
	}
	return &subprocessExecutor{
		lang:    lang,
		command: command,
		timeout: timeout,
		log:     slog.With("component", string(lang)+"_executor"),
	}
}

func (e *subprocessExecutor) Execute(b *block.CodeBlock) Result {
	path := b.AbsPath()
	if path == "" {
		return &ProcessResult{ExecResult: ExecResult{Errstr: "no file to execute"}}
	}

	argv := append(append([]string(nil), e.command...), path)
	e.log.Info("exec", "argv", strings.Join(argv, " "))

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// Own process group so a timeout can reap children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &ProcessResult{
		ExecResult: ExecResult{
			Stdout: decodeOutput(stdout.Bytes()),
			Stderr: decodeOutput(stderr.Bytes()),
		},
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			return &ProcessResult{ExecResult: ExecResult{
				Errstr: fmt.Sprintf("execution timed out after %s", e.timeout),
			}}
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ReturnCode = exitErr.ExitCode()
			return result
		}
		return &ProcessResult{ExecResult: ExecResult{Errstr: err.Error()}}
	}

	return result
}

// decodeOutput converts process output to text, dropping undecodable bytes
// and trailing whitespace.
func decodeOutput(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
}
