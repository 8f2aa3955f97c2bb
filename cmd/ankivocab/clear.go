package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear [words...]",
		Short: "Delete stored progress for words, or everything with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("pass words to clear or --all")
			}
			if len(args) > 0 && all {
				return fmt.Errorf("--all cannot be combined with words")
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Delete(cmd.Context(), args...)
			if err != nil {
				return err
			}
			a.log.Info("history cleared", slog.Int64("deleted", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every record")
	return cmd
}
