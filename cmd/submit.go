package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func newSubmitCmd(app *app) *cobra.Command {
	var flags turnFlags

	cmd := &cobra.Command{
		Use:   "submit <prompt>",
		Short: "Send a prompt to the oracle without waiting for the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			hash, err := client.SubmitRequest(ctx, app.cfg.Model(), strings.Join(args, " "), fee)
			if err != nil {
				return err
			}
			if err := app.saveSession(ctx, session, client); err != nil {
				return err
			}

			if flags.asJSON {
				return writeJSON(cmd, turnOutput{Session: session.ID, TxHash: hash.Hex(), Fee: fee})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
			return err
		},
	}

	addTurnFlags(cmd, &flags)

	return cmd
}

type receiptOutput struct {
	TxHash      string   `json:"tx_hash"`
	Status      uint64   `json:"status"`
	BlockNumber *big.Int `json:"block_number"`
	GasUsed     uint64   `json:"gas_used"`
	RequestID   *big.Int `json:"request_id,omitempty"`
}

func newReceiptCmd(app *app) *cobra.Command {
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "receipt [tx-hash]",
		Short: "Wait for a transaction receipt (default: the session's last request)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, err := app.connect(ctx)
			if err != nil {
				return err
			}
			defer o.Close()

			session, client, err := app.openSessionClient(ctx, o, sessionID)
			if err != nil {
				return err
			}

			hash := client.LastTx()
			if len(args) == 1 {
				hash, err = hashArg(args[0])
				if err != nil {
					return err
				}
			}
			if hash == (common.Hash{}) {
				return fmt.Errorf("session %s has no pending transaction; pass a transaction hash", session.ID)
			}

			var receipt domain.Receipt
			wait := func(ctx context.Context) error {
				var err error
				receipt, err = client.AwaitReceipt(ctx, hash)
				return err
			}

			err = withSpinner(ctx, cmd.ErrOrStderr(), "Waiting for the receipt...", asJSON, wait)
			if saveErr := app.saveSession(ctx, session, client); saveErr != nil {
				err = joinErrors(err, saveErr)
			}
			if err != nil {
				return err
			}

			out := receiptOutput{
				TxHash:      receipt.TxHash.Hex(),
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
				RequestID:   receipt.RequestID,
			}
			if asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "tx: %s\n", out.TxHash)
			_, _ = fmt.Fprintf(w, "status: %d\n", out.Status)
			_, _ = fmt.Fprintf(w, "block: %s\n", out.BlockNumber)
			_, _ = fmt.Fprintf(w, "gas used: %d\n", out.GasUsed)
			if out.RequestID != nil {
				_, _ = fmt.Fprintf(w, "request id: %s\n", out.RequestID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", string(domain.DefaultSessionID), "Session ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newAwaitCmd(app *app) *cobra.Command {
	var flags turnFlags
	var requestID string

	cmd := &cobra.Command{
		Use:   "await",
		Short: "Wait for the oracle answer to the session's last request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			opts := app.cfg.ListenOptions()
			if requestID != "" {
				opts.RequestID, err = parseBigArg("request id", requestID)
				if err != nil {
					return err
				}
			}

			var result *string
			listen := func(ctx context.Context) error {
				var err error
				result, err = client.AwaitResult(ctx, opts)
				return err
			}

			err = withSpinner(ctx, cmd.ErrOrStderr(), "Waiting for the oracle...", flags.asJSON, listen)
			if result != nil {
				if saveErr := app.sessions.Record(ctx, session, client.Conversation(), client.LastTx(), client.LastRequestID()); saveErr != nil {
					err = joinErrors(err, saveErr)
				}
			}
			if err != nil {
				return err
			}

			return writeTurnOutput(cmd, turnOutput{
				Session:   session.ID,
				TxHash:    client.LastTx().Hex(),
				RequestID: client.LastRequestID(),
				Result:    result,
			}, flags)
		},
	}

	cmd.Flags().StringVar(&flags.session, "session", string(domain.DefaultSessionID), "Session ID")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Render JSON output")
	cmd.Flags().StringVar(&requestID, "request-id", "", "Oracle request id to wait for (default: the session's last request)")
	addMarkdownFlag(cmd, &flags.markdownStyle)
	addListenFlags(cmd)

	return cmd
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
