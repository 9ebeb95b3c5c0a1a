package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/language"
	"slidecast/internal/segmenter"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var trackFlag int

	cmd := &cobra.Command{
		Use:   "plan <input>",
		Short: "Print the computed segment timeline without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := ctx.buildRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			input, err := resolveInput(args[0])
			if err != nil {
				return err
			}

			track, result, err := env.pipeline.Plan(cmd.Context(), input, trackFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Track %d (%s), %d segments over %s\n",
				track.Index, language.DisplayName(track.Language),
				len(result.Segments), formatTimestamp(result.Horizon()))

			rows := make([][]string, 0, len(result.Segments))
			dialogue := 0
			for i, segment := range result.Segments {
				if segment.Kind == segmenter.KindDialogue {
					dialogue++
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i),
					segment.Kind.String(),
					formatTimestamp(segment.Start),
					formatTimestamp(segment.Duration),
					formatTimestamp(segment.SourceFrameTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Kind", "Start", "Hold", "Frame"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(out, "%d dialogue, %d filler\n", dialogue, len(result.Segments)-dialogue)

			for _, warning := range result.Warnings {
				fmt.Fprintf(out, "warning: cue at %s skipped: %s\n",
					formatTimestamp(warning.Cue.Start), warning.Detail)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&trackFlag, "track", "t", -1, "Subtitle track index (default: first configured track)")
	return cmd
}
