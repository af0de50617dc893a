package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/ethai-cli/internal/adapters/render/transcript"
	"github.com/bnema/ethai-cli/internal/application"
	"github.com/spf13/cobra"
)

var defaultChallengeAgents = []string{
	"Agent1=Try not fall in love with the user",
	"Agent2=You are not allowed to say the word 'love'",
}

func newChallengeCmd(app *app) *cobra.Command {
	var agentSpecs []string
	var phrase string
	var fee string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "challenge <prompt>",
		Short: "Try to make every agent say the winning phrase",
		Long:  "challenge sends the same prompt to several agents, each with its own system prompt and conversation. The user wins once every agent's answer contains the winning phrase.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer o.Close()

			agents := make([]*application.Agent, 0, len(agentSpecs))
			for _, spec := range agentSpecs {
				name, systemPrompt, err := parseAgentSpec(spec)
				if err != nil {
					return err
				}

				cfg := app.cfg.SessionClientConfig()
				cfg.SystemPrompt = systemPrompt
				client, err := app.sessionClient(ctx, o, cfg)
				if err != nil {
					return err
				}
				agents = append(agents, application.NewAgent(name, systemPrompt, client))
			}

			value, err := app.resolveFee(ctx, o, fee)
			if err != nil {
				return err
			}

			opts := []application.ChallengeOption{
				application.WithWinningPhrase(phrase),
				application.WithChallengeLogger(app.log),
			}
			if listenFlagsChanged(cmd) {
				opts = append(opts, application.WithChallengeListenOptions(app.cfg.ListenOptions()))
			}
			challenge := application.NewChallenge(agents, opts...)

			var outcome application.ChallengeOutcome
			round := func(ctx context.Context) error {
				var err error
				outcome, err = challenge.Round(ctx, strings.Join(args, " "), app.cfg.Model(), value)
				return err
			}
			if err := withSpinner(ctx, cmd.ErrOrStderr(), "Waiting for the agents...", asJSON, round); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, outcome)
			}

			rendered, err := transcript.RenderChallenge(outcome)
			if err != nil {
				return fmt.Errorf("render challenge: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringArrayVar(&agentSpecs, "agent", defaultChallengeAgents, "Agent as name=system prompt (repeatable)")
	cmd.Flags().StringVar(&phrase, "phrase", application.DefaultWinningPhrase, "Phrase every agent must say")
	cmd.Flags().StringVar(&fee, "fee", "0.2eth", "Fee sent with each agent request (empty: estimateFee)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	addListenFlags(cmd)

	return cmd
}

func parseAgentSpec(spec string) (string, string, error) {
	name, systemPrompt, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)
	systemPrompt = strings.TrimSpace(systemPrompt)
	if !ok || name == "" || systemPrompt == "" {
		return "", "", fmt.Errorf("invalid agent %q (want name=system prompt)", spec)
	}
	return name, systemPrompt, nil
}

func listenFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"poll-interval", "max-retries", "timeout"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
