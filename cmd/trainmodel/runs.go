package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/UNO-CSCI4830/SureSight/history"
)

func newRunsCommand(configFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List past training runs, or show one run's epochs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}
			return listRuns(cmd, store)
		},
	}
	return cmd
}

func listRuns(cmd *cobra.Command, store *history.Store) error {
	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no training runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Run", "Started", "Dataset", "Classes", "Outcome", "Best Epoch", "Best Val Loss"})
	for _, run := range runs {
		outcome := run.StopReason
		if outcome == "" {
			outcome = "in progress"
		}
		t.AppendRow(table.Row{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.DatasetRoot,
			run.NumClasses,
			outcome,
			run.BestEpoch,
			fmt.Sprintf("%.4f", run.BestValLoss),
		})
	}
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, store *history.Store, runID string) error {
	run, err := store.Run(cmd.Context(), runID)
	if err != nil {
		return err
	}
	epochs, err := store.Epochs(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s on %s (%d classes)\n", run.ID, run.DatasetRoot, run.NumClasses)
	if run.StopReason != "" {
		fmt.Fprintf(out, "finished: %s, best epoch %d (val loss %.4f)\n", run.StopReason, run.BestEpoch, run.BestValLoss)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Epoch", "Train Loss", "Train Acc", "Val Loss", "Val Acc", "Duration"})
	for _, e := range epochs {
		t.AppendRow(table.Row{
			e.Epoch,
			fmt.Sprintf("%.4f", e.TrainLoss),
			fmt.Sprintf("%.4f", e.TrainAccuracy),
			fmt.Sprintf("%.4f", e.ValLoss),
			fmt.Sprintf("%.4f", e.ValAccuracy),
			e.Duration.Round(time.Millisecond),
		})
	}
	t.Render()
	return nil
}
