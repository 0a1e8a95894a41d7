package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/manifoldco/promptui"

	"codeloop/event"
)

// consoleRuntime answers a Python block's capability requests at the
// terminal: package installs run pip after confirmation, unknown environment
// values are prompted for, images surface as show_image events.
type consoleRuntime struct {
	bus *event.Bus
}

func newConsoleRuntime(bus *event.Bus) *consoleRuntime {
	return &consoleRuntime{bus: bus}
}

func (r *consoleRuntime) InstallPackages(names ...string) bool {
	if len(names) == 0 {
		return true
	}
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Install packages %s", strings.Join(names, ", ")),
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		// Declined or non-interactive: refuse rather than install silently.
		return false
	}

	args := append([]string{"-m", "pip", "install"}, names...)
	cmd := exec.Command("python3", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		r.bus.Emit(event.RuntimeMessage, map[string]any{
			"message": fmt.Sprintf("pip install failed: %v", err),
		})
		return false
	}
	return true
}

func (r *consoleRuntime) GetEnv(name, def, desc string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	label := fmt.Sprintf("Value for %s", name)
	if desc != "" {
		label = fmt.Sprintf("Value for %s (%s)", name, desc)
	}
	prompt := promptui.Prompt{Label: label, Default: def}
	value, err := prompt.Run()
	if err != nil {
		return def
	}
	return value
}

func (r *consoleRuntime) ShowImage(path, url string) {
	r.bus.Emit(event.ShowImage, map[string]any{"path": path, "url": url})
}

func (r *consoleRuntime) Input(prompt string) (string, error) {
	p := promptui.Prompt{Label: strings.TrimSpace(prompt)}
	return p.Run()
}

// replayConfirmer gates replay rounds at the terminal. EOF or any other
// prompt failure counts as approval so piped/non-interactive replays run
// through.
type replayConfirmer struct{}

func (replayConfirmer) ConfirmRound(round int) bool {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Replay round %d", round),
		IsConfirm: true,
		Default:   "y",
	}
	_, err := prompt.Run()
	if err == nil {
		return true
	}
	if err == promptui.ErrAbort {
		return false
	}
	// EOF / not a terminal: auto-confirm.
	return true
}
