package cmd

import (
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/bnema/ethai-cli/internal/application"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type feeOutput struct {
	ModelID          *big.Int `json:"model_id"`
	FeeWei           *big.Int `json:"fee_wei"`
	FeeEther         string   `json:"fee_ether"`
	CallbackGasLimit uint64   `json:"callback_gas_limit"`
}

func newFeeCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Show the oracle fee for the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			ledger, err := app.dial(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			queries := application.NewOracleQueries(ledger, app.cfg.Contract(), app.log)
			model := app.cfg.Model()

			fee, err := queries.EstimateFee(ctx, model)
			if err != nil {
				return err
			}
			gasLimit, err := queries.CallbackGasLimit(ctx, model)
			if err != nil {
				return err
			}

			out := feeOutput{ModelID: model, FeeWei: fee, FeeEther: formatEther(fee), CallbackGasLimit: gasLimit}
			if asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "model: %s\n", out.ModelID)
			_, _ = fmt.Fprintf(w, "fee: %s wei (%s ETH)\n", out.FeeWei, out.FeeEther)
			_, _ = fmt.Fprintf(w, "callback gas limit: %d\n", out.CallbackGasLimit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

type requestOutput struct {
	ID        *big.Int `json:"id"`
	Sender    string   `json:"sender"`
	ModelID   *big.Int `json:"model_id"`
	Input     string   `json:"input"`
	Output    string   `json:"output"`
	Finalized bool     `json:"finalized"`
}

func newRequestCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "request <id>",
		Short: "Show an oracle request and whether it is finalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseBigArg("request id", args[0])
			if err != nil {
				return err
			}

			ledger, err := app.dial(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			queries := application.NewOracleQueries(ledger, app.cfg.Contract(), app.log)

			request, err := queries.Request(ctx, id)
			if err != nil {
				return err
			}
			finalized, err := queries.IsFinalized(ctx, id)
			if err != nil {
				return err
			}

			out := requestOutput{
				ID:        request.ID,
				Sender:    request.Sender.Hex(),
				ModelID:   request.ModelID,
				Input:     printableBytes(request.Input),
				Output:    printableBytes(request.Output),
				Finalized: finalized,
			}
			if asJSON {
				return writeJSON(cmd, out)
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "request: %s\n", out.ID)
			_, _ = fmt.Fprintf(w, "sender: %s\n", out.Sender)
			_, _ = fmt.Fprintf(w, "model: %s\n", out.ModelID)
			_, _ = fmt.Fprintf(w, "finalized: %t\n", out.Finalized)
			_, _ = fmt.Fprintf(w, "input: %s\n", out.Input)
			_, _ = fmt.Fprintf(w, "output: %s\n", out.Output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

// printableBytes shows UTF-8 payloads as text and anything else as hex.
func printableBytes(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return hexutil.Encode(data)
}
