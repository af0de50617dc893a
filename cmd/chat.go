package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/bnema/ethai-cli/internal/adapters/render/transcript"
	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

const noResultMessage = "No result received."

type turnFlags struct {
	session       string
	fee           string
	asJSON        bool
	markdownStyle string
}

func addTurnFlags(cmd *cobra.Command, flags *turnFlags) {
	cmd.Flags().StringVar(&flags.session, "session", string(domain.DefaultSessionID), "Session ID")
	cmd.Flags().StringVar(&flags.fee, "fee", "", "Fee sent with the request, e.g. 0.15eth or a wei amount (default: estimateFee)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Render JSON output")
}

func addListenFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("poll-interval", 0, "Delay between event polls (default 5s)")
	cmd.Flags().Int("max-retries", 0, "Poll attempts before giving up (default 200)")
	cmd.Flags().Duration("timeout", 0, "Wall-clock budget for the oracle answer (default 2m)")
	cmd.Flags().Bool("correlate", true, "Only accept the answer for this request's id")
}

func addMarkdownFlag(cmd *cobra.Command, style *string) {
	cmd.Flags().StringVar(style, "markdown-style", "auto", "Glamour style for answers (auto, dark, light, notty, ascii); empty prints raw text")
}

type turnOutput struct {
	Session   domain.SessionID `json:"session"`
	TxHash    string           `json:"tx_hash"`
	RequestID *big.Int         `json:"request_id,omitempty"`
	Fee       *big.Int         `json:"fee"`
	Result    *string          `json:"result"`
}

func newChatCmd(app *app) *cobra.Command {
	var flags turnFlags

	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Send a prompt to the oracle and wait for its answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, app, strings.Join(args, " "), flags)
		},
	}

	addTurnFlags(cmd, &flags)
	addMarkdownFlag(cmd, &flags.markdownStyle)
	addListenFlags(cmd)

	return cmd
}

func runChat(cmd *cobra.Command, app *app, prompt string, flags turnFlags) error {
	ctx := cmd.Context()

	o, err := app.connect(ctx)
	if err != nil {
		return err
	}
	defer o.Close()

	session, client, err := app.openSessionClient(ctx, o, flags.session)
	if err != nil {
		return err
	}

	fee, err := app.resolveFee(ctx, o, flags.fee)
	if err != nil {
		return err
	}

	var result *string
	converse := func(ctx context.Context) error {
		var err error
		result, _, err = client.Converse(ctx, app.cfg.Model(), prompt, fee, app.cfg.ListenOptions())
		return err
	}

	err = withSpinner(ctx, cmd.ErrOrStderr(), "Waiting for the oracle...", flags.asJSON, converse)
	if saveErr := app.saveSession(ctx, session, client); saveErr != nil {
		err = joinErrors(err, saveErr)
	}
	if err != nil {
		return err
	}

	return writeTurnOutput(cmd, turnOutput{
		Session:   session.ID,
		TxHash:    client.LastTx().Hex(),
		RequestID: client.LastRequestID(),
		Fee:       fee,
		Result:    result,
	}, flags)
}

// resolveFee parses raw, or asks the oracle for the model's fee when raw is empty.
func (a *app) resolveFee(ctx context.Context, o *oracle, raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) != "" {
		fee, err := parseAmount(raw)
		if err != nil {
			return nil, domain.ConfigurationError("parse fee", err)
		}
		return fee, nil
	}

	queries := application.NewOracleQueries(o.ledger, a.cfg.Contract(), a.log)
	return queries.EstimateFee(ctx, a.cfg.Model())
}

func writeTurnOutput(cmd *cobra.Command, out turnOutput, flags turnFlags) error {
	if flags.asJSON {
		return writeJSON(cmd, out)
	}

	if out.Result == nil {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), noResultMessage)
		return err
	}

	rendered, err := transcript.Markdown(*out.Result, flags.markdownStyle, 0)
	if err != nil {
		return fmt.Errorf("render answer: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func hashArg(raw string) (common.Hash, error) {
	value := strings.TrimSpace(raw)
	if !strings.HasPrefix(value, "0x") {
		value = "0x" + value
	}

	decoded, err := hexutil.Decode(value)
	if err != nil || len(decoded) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", raw)
	}
	return common.BytesToHash(decoded), nil
}
