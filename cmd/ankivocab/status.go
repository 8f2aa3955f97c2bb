package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/japaniel/ankivocab/pkg/vocab"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List stored stage progress per word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No words in history.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WORD\tTYPE\tSTAGES\tCOMPLETED\tUPDATED")
			for _, r := range records {
				completed := "-"
				if r.Status.CompletedAt != nil {
					completed = r.Status.CompletedAt.Format("2006-01-02 15:04")
				}
				updated := "-"
				if !r.UpdatedAt.IsZero() {
					updated = humanize.Time(r.UpdatedAt)
				}
				wordType := string(r.Entry.WordType)
				if wordType == "" {
					wordType = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key, wordType, stageFlags(r.Status), completed, updated)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d words\n", len(records))
			return nil
		},
	}
}

// stageLetters abbreviates vocab.Stages in order.
const stageLetters = "MDEPG"

// stageFlags renders one letter per done stage and '.' otherwise.
func stageFlags(s vocab.StageStatus) string {
	var sb strings.Builder
	for i, stage := range vocab.Stages {
		if s.Done(stage) {
			sb.WriteByte(stageLetters[i])
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
