package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/UNO-CSCI4830/SureSight/checkpoints"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Show the architecture and training state of a saved model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := checkpoints.Load(args[0])
			if err != nil {
				return err
			}

			// Seed is irrelevant here: the checkpoint weights replace
			// whatever the rebuild initialized.
			model, err := checkpoints.Rebuild(cp, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s checkpoint v%s, written %s\n",
				cp.Metadata.Framework, cp.Metadata.Version,
				cp.Metadata.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "epoch %d, val loss %.4f, val accuracy %.4f\n",
				cp.TrainingState.Epoch, cp.TrainingState.ValLoss, cp.TrainingState.ValAccuracy)
			fmt.Fprintln(out, model.Summary())
			return nil
		},
	}
	return cmd
}
