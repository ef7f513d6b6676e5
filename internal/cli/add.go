package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ralt/repoadd/internal/api"
	"github.com/ralt/repoadd/internal/form"
	"github.com/ralt/repoadd/internal/models"
	"github.com/ralt/repoadd/internal/notify"
)

// RepositoryEntry is one repository to add, as read from flags or a batch file
type RepositoryEntry struct {
	Name                 string   `yaml:"name"`
	URL                  string   `yaml:"url"`
	GPGKey               string   `yaml:"gpg_key"`
	Architecture         string   `yaml:"arch"`
	Versions             []string `yaml:"versions"`
	MetadataVerification *bool    `yaml:"metadata_verification"`
}

// BatchFile is the document accepted by add --file
type BatchFile struct {
	Repositories []RepositoryEntry `yaml:"repositories"`
}

// ReadBatchFile parses a batch file
func ReadBatchFile(r io.Reader) ([]RepositoryEntry, error) {
	var batch BatchFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(batch.Repositories) == 0 {
		return nil, errors.New("batch file lists no repositories")
	}
	return batch.Repositories, nil
}

type addOptions struct {
	file   string
	entry  RepositoryEntry
	verify bool
	dryRun bool
}

// NewAddCmd creates the add command
func NewAddCmd(v *viper.Viper) *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Validate and create repositories",
		Long: `Adds one repository given by flags, or many listed in a YAML batch file:

  repositories:
    - name: EPEL 9
      url: https://dl.fedoraproject.org/pub/epel/9/Everything/x86_64/
      gpg_key: https://dl.fedoraproject.org/pub/epel/RPM-GPG-KEY-EPEL-9

Architecture and versions left unset are inferred from the URL.
Nothing is created unless every repository passes validation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := opts.entries(cmd)
			if err != nil {
				return err
			}

			cfg, client, err := newClient(v)
			if err != nil {
				return err
			}

			params, err := api.NewParamsCache(client).Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get repository parameters: %w", err)
			}

			notifier := notify.NewLogNotifier(logrus.StandardLogger())
			session := form.New(client, notifier, params,
				form.WithContext(cmd.Context()),
				form.WithDebounce(cfg.Debounce),
				form.WithMaxRows(cfg.MaxRows),
				form.WithRequestTimeout(cfg.Timeout),
				form.WithHidePackageVerification(cfg.HidePackageVerification),
			)

			return runAdd(cmd.Context(), session, entries, opts.dryRun, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML file listing the repositories to add")
	cmd.Flags().StringVar(&opts.entry.Name, "name", "", "Repository name")
	cmd.Flags().StringVar(&opts.entry.URL, "url", "", "Repository URL")
	cmd.Flags().StringVar(&opts.entry.GPGKey, "gpg-key", "", "GPG key, literal or URL")
	cmd.Flags().StringVar(&opts.entry.Architecture, "arch", "", "Restrict to an architecture (default: inferred from the URL)")
	cmd.Flags().StringSliceVar(&opts.entry.Versions, "version", nil, "Restrict to OS versions (default: inferred from the URL)")
	cmd.Flags().BoolVar(&opts.verify, "metadata-verification", false, "Verify the repository metadata signature")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate only, do not create anything")

	return cmd
}

func (o *addOptions) entries(cmd *cobra.Command) ([]RepositoryEntry, error) {
	if o.file != "" {
		if cmd.Flags().Changed("name") || cmd.Flags().Changed("url") {
			return nil, errors.New("--file cannot be combined with --name or --url")
		}

		f, err := os.Open(o.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()

		return ReadBatchFile(f)
	}

	if o.entry.Name == "" || o.entry.URL == "" {
		return nil, errors.New("either --file or both --name and --url are required")
	}

	entry := o.entry
	if cmd.Flags().Changed("metadata-verification") {
		entry.MetadataVerification = &o.verify
	}
	return []RepositoryEntry{entry}, nil
}

// runAdd fills one row per entry, adding the next row only once the current
// ones verified clean, then submits unless dryRun is set.
func runAdd(ctx context.Context, session *form.Form, entries []RepositoryEntry, dryRun bool, out io.Writer) error {
	session.Open()
	defer session.Close()

	for i, entry := range entries {
		logrus.Infof("Validating %s (%d/%d)", entry.Name, i+1, len(entries))

		var id form.RowID
		if i == 0 {
			id = session.RowIDs()[0]
		} else {
			var err error
			id, err = session.AddRow()
			if err != nil {
				_ = renderRows(out, session.Snapshot())
				return fmt.Errorf("cannot add %s: %w", entry.Name, err)
			}
		}

		if err := fillEntry(ctx, session, id, entry); err != nil {
			_ = renderRows(out, session.Snapshot())
			return fmt.Errorf("failed to fill %s: %w", entry.Name, err)
		}
	}

	st := session.Snapshot()
	if err := renderRows(out, st); err != nil {
		return err
	}

	if !st.Valid {
		var failures []string
		for _, r := range st.Rows {
			if problems := rowProblems(r); problems != "" {
				failures = append(failures, fmt.Sprintf("%s (%s)", r.Draft.Name, problems))
			}
		}
		return &models.ContentError{
			Type: models.ErrServerValidation,
			Err:  fmt.Errorf("%d of %d repositories failed validation: %s", len(failures), len(st.Rows), strings.Join(failures, ", ")),
		}
	}
	if !st.CanSubmit {
		return form.ErrNotReady
	}
	if dryRun {
		logrus.Info("Dry run, nothing created")
		return nil
	}

	created, err := session.Submit(ctx)
	if len(created) > 0 {
		if renderErr := renderRepositories(out, created); renderErr != nil {
			logrus.Warnf("Failed to render created repositories: %v", renderErr)
		}
	}
	return err
}

func fillEntry(ctx context.Context, session *form.Form, id form.RowID, entry RepositoryEntry) error {
	patch := form.RowPatch{
		Name:        &entry.Name,
		URL:         &entry.URL,
		GPGKeyInput: &entry.GPGKey,
	}
	if entry.Architecture != "" {
		patch.Architecture = &entry.Architecture
	}
	if len(entry.Versions) > 0 {
		patch.Versions = entry.Versions
	}

	if err := session.UpdateRow(id, patch); err != nil {
		return err
	}
	if err := session.InferDistribution(id); err != nil {
		return err
	}
	if err := session.WaitSettled(ctx); err != nil {
		return err
	}

	// The signature probe is only known after validation.
	if entry.MetadataVerification != nil {
		if err := session.SetMetadataVerification(id, *entry.MetadataVerification); err != nil {
			return err
		}
		if err := session.WaitSettled(ctx); err != nil {
			return err
		}
	}
	return nil
}

func renderRows(w io.Writer, st form.State) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "URL", "Architecture", "Versions", "Verify metadata", "Errors")

	for _, r := range st.Rows {
		row := []string{
			r.Draft.Name,
			r.Draft.URL,
			r.Draft.Architecture,
			strings.Join(r.Draft.Versions, ","),
			fmt.Sprintf("%t", r.Draft.MetadataVerification),
			rowProblems(r),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render row %s: %w", r.Draft.Name, err)
		}
	}

	return table.Render()
}

// rowProblems lists the failing fields of a row in field order
func rowProblems(r form.RowState) string {
	var problems []string
	for _, field := range models.Fields {
		if msg, ok := r.Errors[field]; ok {
			problems = append(problems, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	return strings.Join(problems, "; ")
}
