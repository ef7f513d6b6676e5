package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ralt/repoadd/internal/models"
)

// NewListCmd creates the list command
func NewListCmd(v *viper.Viper) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := newClient(v)
			if err != nil {
				return err
			}

			page, err := client.ListRepositories(cmd.Context(), limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list repositories: %w", err)
			}

			logrus.Debugf("Listed %d of %d repositories", len(page.Data), page.Meta.Count)
			return renderRepositories(cmd.OutOrStdout(), page.Data)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of repositories to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of repositories to skip")

	return cmd
}

func renderRepositories(w io.Writer, repos []models.Repository) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "URL", "Architecture", "Versions", "Packages", "Status")

	for _, repo := range repos {
		row := []string{
			repo.Name,
			repo.URL,
			repo.DistributionArch,
			strings.Join(repo.DistributionVersions, ","),
			strconv.Itoa(repo.PackageCount),
			repo.Status,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render repository %s: %w", repo.Name, err)
		}
	}

	return table.Render()
}
