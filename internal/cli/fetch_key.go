package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ralt/repoadd/internal/gpgkey"
	"github.com/ralt/repoadd/internal/models"
)

// NewFetchKeyCmd creates the fetch-key command
func NewFetchKeyCmd(v *viper.Viper) *cobra.Command {
	var armored bool

	cmd := &cobra.Command{
		Use:   "fetch-key URL",
		Short: "Download a GPG key through the service and show its fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !gpgkey.IsURL(args[0]) {
				return &models.ContentError{
					Type: models.ErrFieldShape,
					Err:  fmt.Errorf("not an http or https URL: %s", args[0]),
				}
			}

			_, client, err := newClient(v)
			if err != nil {
				return err
			}

			key, err := client.FetchGPGKey(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("failed to fetch GPG key: %w", err)
			}

			out := cmd.OutOrStdout()
			if armored {
				_, _ = fmt.Fprintln(out, strings.TrimSpace(key))
				return nil
			}

			infos, err := gpgkey.Inspect(key)
			if err != nil {
				return fmt.Errorf("failed to read fetched key: %w", err)
			}
			for _, info := range infos {
				_, _ = fmt.Fprintf(out, "Fingerprint: %s\n", info.Fingerprint)
				_, _ = fmt.Fprintf(out, "Key ID:      %s\n", info.KeyID)
				for _, id := range info.Identities {
					_, _ = fmt.Fprintf(out, "Identity:    %s\n", id)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&armored, "armor", false, "Print the armored key instead of its fingerprints")

	return cmd
}
