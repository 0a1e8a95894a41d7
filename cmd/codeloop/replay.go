package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"codeloop/display"
	"codeloop/event"
	"codeloop/task"
)

func replayCmd() *cobra.Command {
	var speed float64
	var yes bool
	cmd := &cobra.Command{
		Use:   "replay <task.json>",
		Short: "Replay a recorded task against a fresh display",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := task.LoadData(args[0])
			if err != nil {
				return err
			}

			bus := event.NewBus()
			console := display.NewConsole(cmd.OutOrStdout())
			console.Verbose = true
			bus.AddListener(console)

			recorder := event.NewRecorder(false)
			recorder.RestoreState(data.ComponentState.Events)
			summary := recorder.Summary()
			display.ReplaySummary(cmd.OutOrStdout(), data.TaskID, data.Instruction, summary, speed)

			replayer, err := event.NewReplayer(bus, speed)
			if err != nil {
				return err
			}
			if !yes {
				replayer.SetConfirmer(replayConfirmer{})
			}

			err = replayer.Replay(recorder.Events())
			if errors.Is(err, event.ErrReplayCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "replay cancelled")
				return nil
			}
			return err
		},
	}
	cmd.Flags().Float64VarP(&speed, "speed", "s", 1.0, "playback speed multiplier")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "auto-confirm every round")
	return cmd
}
