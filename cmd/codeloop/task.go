package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"codeloop/display"
	"codeloop/event"
	"codeloop/exec"
	"codeloop/store"
	"codeloop/task"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Inspect and manage saved tasks"}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskStepsCmd())
	cmd.AddCommand(taskDropCmd())
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(baseWorkDir())
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.List()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"ID", "Instruction", "Updated", "Path"})
			for _, rec := range records {
				t.AppendRow(table.Row{
					shortID(rec.ID), rec.Instruction, rec.UpdatedAt.Format("2006-01-02 15:04"), rec.Path,
				})
			}
			t.Render()
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func taskStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps <task.json>",
		Short: "Show a saved task's steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := task.LoadData(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s: %s\n", data.TaskID, data.Instruction)
			display.StepsTable(cmd.OutOrStdout(), data.Steps)
			return nil
		},
	}
}

func taskDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <task.json> <step-index>",
		Short: "Roll a saved task back to before the given step",
		Long: `Restores every tracked component (conversation, executions, events) to
the state just before the step was created, truncates later steps, and
rewrites the task file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("step index must be an integer: %w", err)
			}
			data, err := task.LoadData(args[0])
			if err != nil {
				return err
			}

			t := task.New(task.Config{
				Bus:      event.NewBus(),
				Recorder: event.NewRecorder(true),
				Executor: exec.NewBlockExecutor(),
				WorkDir:  filepath.Dir(args[0]),
			})
			if err := t.Restore(data); err != nil {
				return err
			}
			if err := t.Steps().DeleteStep(index); err != nil {
				return err
			}
			if err := t.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back to %d step(s)\n", len(t.Steps().Steps()))
			return nil
		},
	}
}
