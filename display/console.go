// Package display renders the task's event stream for the terminal. The
// console is an ordinary event.Listener: it declares the handlers it wants
// and the bus does the rest. Rendering bugs here can never abort the loop;
// the bus isolates them.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"codeloop/event"
	"codeloop/exec"
)

// Console is the default display subscriber.
type Console struct {
	out io.Writer
	// Verbose echoes full model replies instead of a one-line notice.
	Verbose bool

	title   *color.Color
	info    *color.Color
	ok      *color.Color
	bad     *color.Color
	dim     *color.Color
	codeTag *color.Color
}

// NewConsole creates a console display writing to w (stdout when nil).
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{
		out:     w,
		title:   color.New(color.FgCyan, color.Bold),
		info:    color.New(color.FgBlue),
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		dim:     color.New(color.Faint),
		codeTag: color.New(color.FgYellow),
	}
}

// Handlers declares the events the console renders.
func (c *Console) Handlers() map[event.Name]event.Handler {
	return map[event.Name]event.Handler{
		event.TaskStart:        c.onTaskStart,
		event.RoundStart:       c.onRoundStart,
		event.QueryStart:       c.onQueryStart,
		event.ResponseComplete: c.onResponseComplete,
		event.ParseReply:       c.onParseReply,
		event.ExecStart:        c.onExec,
		event.ExecResult:       c.onExecResult,
		event.RoundEnd:         c.onRoundEnd,
		event.TaskEnd:          c.onTaskEnd,
		event.Exception:        c.onException,
		event.RuntimeMessage:   c.onRuntimeMessage,
		event.ShowImage:        c.onShowImage,
	}
}

func (c *Console) onTaskStart(ev event.Event) {
	c.title.Fprintf(c.out, "▶ task %s\n", ev.GetString("task_id"))
	fmt.Fprintf(c.out, "  %s\n", ev.GetString("instruction"))
}

func (c *Console) onRoundStart(ev event.Event) {
	c.info.Fprintf(c.out, "— round %v —\n", ev.Get("round"))
}

func (c *Console) onQueryStart(ev event.Event) {
	c.dim.Fprintln(c.out, "  thinking...")
}

func (c *Console) onResponseComplete(ev event.Event) {
	if !c.Verbose {
		c.dim.Fprintln(c.out, "  reply received")
		return
	}
	content := ev.GetString("content")
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
}

func (c *Console) onParseReply(ev event.Event) {
	n := ev.Get("blocks")
	c.dim.Fprintf(c.out, "  %v code block(s)\n", n)
}

func (c *Console) onExec(ev event.Event) {
	c.codeTag.Fprintf(c.out, "  $ %v\n", ev.Get("block"))
}

func (c *Console) onExecResult(ev event.Event) {
	name := ev.GetString("block_name")
	result, _ := ev.Get("result").(exec.Result)
	if result == nil {
		c.dim.Fprintf(c.out, "  %s: no result\n", name)
		return
	}
	if result.HasError() {
		c.bad.Fprintf(c.out, "  ✗ %s failed\n", name)
		c.printResultDetail(result)
		return
	}
	c.ok.Fprintf(c.out, "  ✓ %s\n", name)
	c.printResultDetail(result)
}

func (c *Console) printResultDetail(result exec.Result) {
	m := exec.EncodeResult(result)
	for _, key := range []string{"stdout", "stderr", "errstr"} {
		if s, _ := m[key].(string); s != "" {
			for _, line := range strings.Split(s, "\n") {
				c.dim.Fprintf(c.out, "    %s\n", line)
			}
		}
	}
}

func (c *Console) onRoundEnd(ev event.Event) {
	c.dim.Fprintf(c.out, "  round %v done: %v block(s), %.1fs, ~%v tokens\n",
		ev.Get("round"), ev.Get("blocks"), floatField(ev, "elapsed"), ev.Get("tokens"))
}

func (c *Console) onTaskEnd(ev event.Event) {
	c.title.Fprintf(c.out, "■ task done (%v steps)\n", ev.Get("steps"))
}

func (c *Console) onException(ev event.Event) {
	c.bad.Fprintf(c.out, "  ! %v\n", ev.Get("error"))
}

func (c *Console) onRuntimeMessage(ev event.Event) {
	fmt.Fprintf(c.out, "  %s\n", ev.GetString("message"))
}

func (c *Console) onShowImage(ev event.Event) {
	target := ev.GetString("path")
	if target == "" {
		target = ev.GetString("url")
	}
	c.info.Fprintf(c.out, "  image: %s\n", target)
}

func floatField(ev event.Event, key string) float64 {
	f, _ := ev.Get(key).(float64)
	return f
}
