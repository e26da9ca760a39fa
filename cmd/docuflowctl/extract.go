package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docuflow/internal/bootstrap"
	"docuflow/internal/extract"
)

const previewChars = 1000

func extractCmd(build appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the page count and the start of page one of FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			name := filepath.Base(args[0])
			mimeType := extract.NormalizeMimeType("", name, data)
			return withApp(cmd, build, func(app *bootstrap.App) error {
				res, err := app.Intake.Extractor.Extract(cmd.Context(), data, mimeType, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "source: %s\n", res.Source)
				fmt.Fprintf(out, "pages: %d\n", len(res.Pages))
				if len(res.Pages) > 0 {
					fmt.Fprintln(out, preview(res.Pages[0], previewChars))
				}
				return nil
			})
		},
	}
}

// preview returns at most n runes of s.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
