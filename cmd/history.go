package cmd

import (
	"fmt"

	"github.com/bnema/ethai-cli/internal/adapters/render/transcript"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled oracle requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			journal, err := app.openJournal()
			if err != nil {
				return err
			}
			defer journal.Close()

			records, err := journal.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list requests: %w", err)
			}

			if asJSON {
				return writeJSON(cmd, records)
			}

			rendered, err := transcript.RenderHistory(records, app.renderOptions(""))
			if err != nil {
				return fmt.Errorf("render history: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of requests to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
