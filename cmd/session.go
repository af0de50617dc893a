package cmd

import (
	"fmt"

	"github.com/bnema/ethai-cli/internal/adapters/render/transcript"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage conversation sessions",
	}

	cmd.AddCommand(
		newSessionListCmd(app),
		newSessionShowCmd(app),
		newSessionResetCmd(app),
		newSessionDeleteCmd(app),
	)

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := app.sessions.List(cmd.Context())
			if err != nil {
				return err
			}

			rendered, err := transcript.RenderSessions(sessions, app.renderOptions(""))
			if err != nil {
				return fmt.Errorf("render sessions: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func sessionArg(args []string) domain.SessionID {
	if len(args) == 0 {
		return domain.DefaultSessionID
	}
	return domain.SessionID(args[0])
}

func newSessionShowCmd(app *app) *cobra.Command {
	var asJSON bool
	var markdownStyle string

	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Print a session transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := app.sessions.Get(cmd.Context(), sessionArg(args))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, session)
			}

			rendered, err := transcript.RenderSession(session, app.renderOptions(markdownStyle))
			if err != nil {
				return fmt.Errorf("render session: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	addMarkdownFlag(cmd, &markdownStyle)

	return cmd
}

func newSessionResetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [session-id]",
		Short: "Clear a session transcript, keeping its system prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := sessionArg(args)
			if err := app.sessions.Reset(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "session %s reset\n", id)
			return err
		},
	}
}

func newSessionDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := app.sessions.Delete(cmd.Context(), id); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "session %s deleted\n", id)
			return err
		},
	}
}
