package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slidecast/internal/config"
	"slidecast/internal/language"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "generate <input>",
		Short: "Render slideshow videos from a file's subtitle tracks",
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

			output := ""
			if outputFlag != "" {
				if output, err = config.ExpandPath(outputFlag); err != nil {
					return err
				}
			}

			result, runErr := env.pipeline.Run(cmd.Context(), input, output)

			if len(result.Outcomes) > 0 {
				rows := make([][]string, 0, len(result.Outcomes))
				for _, outcome := range result.Outcomes {
					status := "ok"
					detail := outcome.Output
					if outcome.Err != nil {
						status = "failed"
						detail = outcome.Err.Error()
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", outcome.Track.Index),
						language.DisplayName(outcome.Track.Language),
						fmt.Sprintf("%d", outcome.Segments),
						status,
						detail,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Track", "Language", "Segments", "Status", "Output"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
			}

			return runErr
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output path (default: <input>.slideshow.<ext>)")
	return cmd
}

func resolveInput(arg string) (string, error) {
	input, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(input)
	if err != nil {
		return "", fmt.Errorf("inspect input %q: %w", input, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("input %q is a directory, expected a video file", input)
	}
	return input, nil
}
