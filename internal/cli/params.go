package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ralt/repoadd/internal/api"
	"github.com/ralt/repoadd/internal/models"
)

// NewParamsCmd creates the params command
func NewParamsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "Show the architectures and OS versions a repository can be restricted to",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := newClient(v)
			if err != nil {
				return err
			}

			params, err := api.NewParamsCache(client).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get repository parameters: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := renderOptions(out, "Architecture", params.DistributionArches); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out)
			return renderOptions(out, "Version", params.DistributionVersions)
		},
	}
}

func renderOptions(w io.Writer, kind string, options []models.DistributionOption) error {
	table := tablewriter.NewWriter(w)
	table.Header(kind, "Label")

	for _, opt := range options {
		if err := table.Append([]string{opt.Name, opt.Label}); err != nil {
			return fmt.Errorf("failed to render %s %s: %w", kind, opt.Label, err)
		}
	}

	return table.Render()
}
