package exec

import (
	"fmt"
	"os/exec"
	"runtime"

	"codeloop/block"
)

// HTMLExecutor does not execute anything: it opens the block's file in the
// default browser and reports an immediate success stub. Side effect only.
type HTMLExecutor struct {
	// open overrides the browser launcher in tests.
	open func(url string) error
}

func (e *HTMLExecutor) Execute(b *block.CodeBlock) Result {
	path := b.AbsPath()
	if path == "" {
		return &ExecResult{Errstr: "no file to open"}
	}
	open := e.open
	if open == nil {
		open = openBrowser
	}
	if err := open("file://" + path); err != nil {
		return errorResult(fmt.Errorf("open browser: %w", err))
	}
	return &ExecResult{Stdout: "OK"}
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
