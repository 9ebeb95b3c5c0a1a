package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecast/internal/language"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks <input>",
		Short: "List subtitle tracks in a video file",
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

			tracks, err := env.pipeline.Tracks(cmd.Context(), input)
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subtitle tracks found")
				return nil
			}

			rows := make([][]string, 0, len(tracks))
			for _, track := range tracks {
				usable := "yes"
				if track.IsBitmap() {
					usable = "no (bitmap)"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", track.Index),
					language.DisplayName(track.Language),
					track.Codec,
					track.Title,
					usable,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Track", "Language", "Codec", "Title", "Usable"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
