package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeloop/display"
	"codeloop/event"
	"codeloop/exec"
	"codeloop/llm"
	"codeloop/store"
	"codeloop/task"
)

const defaultSystemPrompt = `You are a coding agent. Reply with fenced code
blocks tagged with their language (python, bash, javascript, ...) for
anything that should be executed. Execution results come back as JSON in the
next user message; use them to fix problems or continue. When the task is
complete, reply with plain text and no code blocks.`

func runCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run [instruction]",
		Short: "Run an instruction through the agent loop",
		Long: `Runs a single instruction to completion, or starts an interactive
session when no instruction is given. Task state is saved to the work
directory after every run and indexed for later replay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := llm.NewGollmClient(llm.Config{
				Provider: viper.GetString("provider"),
				Model:    viper.GetString("model"),
			})
			if err != nil {
				return err
			}
			if len(args) > 0 {
				return runOnce(cmd, client, strings.Join(args, " "), verbose)
			}
			return runInteractive(cmd, client, verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "echo full model replies")
	return cmd
}

func runOnce(cmd *cobra.Command, client llm.Client, instruction string, verbose bool) error {
	workDir := filepath.Join(baseWorkDir(), time.Now().Format("20060102-150405"))

	bus := event.NewBus()
	console := display.NewConsole(cmd.OutOrStdout())
	console.Verbose = verbose
	bus.AddListener(console)

	recorder := event.NewRecorder(true)
	recorder.Subscribe(bus)

	executor := exec.NewBlockExecutor()
	executor.SetPythonRuntime(newConsoleRuntime(bus))

	t := task.New(task.Config{
		Client:       client,
		Bus:          bus,
		Recorder:     recorder,
		Executor:     executor,
		SystemPrompt: defaultSystemPrompt,
		WorkDir:      workDir,
		MaxRounds:    viper.GetInt("max-rounds"),
		Model:        viper.GetString("model"),
	})

	if err := t.Run(cmd.Context(), instruction); err != nil {
		return err
	}
	if err := t.Save(); err != nil {
		return err
	}
	return indexTask(t)
}

func runInteractive(cmd *cobra.Command, client llm.Client, verbose bool) error {
	fmt.Fprintln(cmd.OutOrStdout(), "interactive session: empty line or \"exit\" to quit")
	for {
		prompt := promptui.Prompt{Label: ">"}
		instruction, err := prompt.Run()
		if err != nil {
			// EOF / interrupt ends the session.
			return nil
		}
		instruction = strings.TrimSpace(instruction)
		if instruction == "" || instruction == "exit" {
			return nil
		}
		if err := runOnce(cmd, client, instruction, verbose); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func indexTask(t *task.Task) error {
	s, err := store.Open(baseWorkDir())
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Upsert(store.TaskRecord{
		ID:          t.ID,
		Instruction: t.Instruction,
		Path:        filepath.Join(t.WorkDir(), task.TaskFileName),
	})
}
