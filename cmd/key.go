package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newKeyCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the signing key",
	}

	cmd.AddCommand(
		newKeySetCmd(app),
		newKeyRemoveCmd(app),
		newKeyAddressCmd(app),
	)

	return cmd
}

func keyRef(app *app, ref string) string {
	if strings.TrimSpace(ref) != "" {
		return ref
	}
	return app.cfg.KeyRef
}

func newKeySetCmd(app *app) *cobra.Command {
	var ref string
	var privateKey string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a hex-encoded private key in the secret store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read private key from stdin: %w", err)
				}
				privateKey = line
			}
			if strings.TrimSpace(privateKey) == "" {
				return errors.New("a private key is required (use --private-key or --stdin)")
			}

			address, err := app.keys.SetKey(cmd.Context(), keyRef(app, ref), privateKey)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored key for %s\n", address)
			return err
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Secret store reference (default: key_ref)")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "Hex-encoded secp256k1 private key")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the private key from stdin")
	cmd.MarkFlagsMutuallyExclusive("private-key", "stdin")

	return cmd
}

func newKeyRemoveCmd(app *app) *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the signing key from the secret store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved := keyRef(app, ref)
			if err := app.keys.RemoveKey(cmd.Context(), resolved); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", resolved)
			return err
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Secret store reference (default: key_ref)")

	return cmd
}

func newKeyAddressCmd(app *app) *cobra.Command {
	var ref string

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the address of the stored signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			address, err := app.keys.Address(cmd.Context(), keyRef(app, ref))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), address)
			return err
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Secret store reference (default: key_ref)")

	return cmd
}
