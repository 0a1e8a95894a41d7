package display

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"codeloop/event"
	"codeloop/task"
)

// StepsTable renders a task's steps.
func StepsTable(w io.Writer, steps []task.Step) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Round", "Time", "Response"})
	for i, s := range steps {
		ts := time.Unix(0, int64(s.Timestamp*float64(time.Second)))
		t.AppendRow(table.Row{i, s.Round, ts.Format("15:04:05"), truncate(s.Response, 60)})
	}
	t.Render()
}

// ReplaySummary prints the panel shown before a replay starts.
func ReplaySummary(w io.Writer, taskID, instruction string, summary event.Summary, speed float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Replay")
	t.AppendRow(table.Row{"Task", taskID})
	t.AppendRow(table.Row{"Instruction", truncate(instruction, 60)})
	t.AppendRow(table.Row{"Events", summary.TotalEvents})
	t.AppendRow(table.Row{"Duration", fmt.Sprintf("%.1fs", summary.Duration)})
	t.AppendRow(table.Row{"Speed", fmt.Sprintf("%.1fx", speed)})
	t.Render()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
