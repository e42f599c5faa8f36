package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/boddenberg/client-portal-go/internal/config"
	"github.com/boddenberg/client-portal-go/internal/webhook"
)

func newSignCommand() *cobra.Command {
	var (
		file   string
		secret string
		scheme string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Compute the hmac header for a gateway callback body",
		Long: `sign reads a JSON callback body from --file (or stdin), compacts it the
way the portal does, and prints the value to send in the hmac header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if secret == "" {
				secret = cfg.WebhookSecret
			}
			if scheme == "" {
				scheme = cfg.WebhookMACScheme
			}

			parsed, err := webhook.ParseScheme(scheme)
			if err != nil {
				return err
			}
			verifier, err := webhook.NewVerifier(secret, parsed)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open payload: %w", err)
				}
				defer f.Close()
				in = f
			}
			body, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			canonical, err := webhook.Canonicalize(body)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), verifier.Sign(canonical))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "payload file, - or empty for stdin")
	cmd.Flags().StringVar(&secret, "secret", "", "shared secret (defaults to WEBHOOK_SECRET)")
	cmd.Flags().StringVar(&scheme, "scheme", "", "hmac-sha256 or legacy (defaults to WEBHOOK_MAC_SCHEME)")
	return cmd
}
