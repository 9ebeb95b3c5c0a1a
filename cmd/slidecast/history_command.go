package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Render history utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, 20)
		},
	}

	var limitFlag int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(ctx, cmd, limitFlag)
		},
	}
	listCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Maximum jobs to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}

	historyCmd.AddCommand(listCmd)
	historyCmd.AddCommand(clearCmd)
	return historyCmd
}

func runHistoryList(ctx *commandContext, cmd *cobra.Command, limit int) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.ListJobs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No render jobs recorded")
		return nil
	}

	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		succeeded := 0
		for _, track := range job.Tracks {
			if track.Error == "" {
				succeeded++
			}
		}
		started := ""
		if !job.StartedAt.IsZero() {
			started = job.StartedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			shortID(job.ID),
			job.Source,
			job.Status,
			fmt.Sprintf("%d/%d", succeeded, len(job.Tracks)),
			started,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Job", "Source", "Status", "Tracks", "Started"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
