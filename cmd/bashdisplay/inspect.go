package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/deixis/bashdisplay/internal/report"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect RUN_ID",
	Short: "Print the stored output of an earlier run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, _ := cmd.Flags().GetString("stream")
		tail, _ := cmd.Flags().GetInt("tail")

		w, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer w.Close()

		if w.Store == nil {
			return errors.New("run history is disabled")
		}

		result, err := w.Store.Load(context.Background(), args[0])
		if err != nil {
			if errors.Is(err, report.ErrNotFound) {
				return fmt.Errorf("no run %s in history (%s)", args[0], w.History)
			}
			return err
		}

		text, err := result.Stream(stream)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(os.Stdout, report.Tail(text, tail))
		return err
	},
}

func init() {
	inspectCmd.Flags().String("stream", report.Stdout, "stream to print: stdout or stderr")
	inspectCmd.Flags().Int("tail", 0, "only print the last N lines")
	rootCmd.AddCommand(inspectCmd)
}
