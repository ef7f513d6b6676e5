package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ralt/repoadd/internal/api"
	"github.com/ralt/repoadd/internal/config"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "repoadd",
		Short: "Add and list custom content-sources repositories",
		Long: `Repoadd validates and creates custom repositories in the content-sources
service, one or many at a time.

Each repository is validated by the service before it can be created.
GPG keys may be given literally or as a URL, which the service downloads.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}

			return config.Init(v, cfgFile)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&cfgFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/repoadd/config.yaml)")
	flags.String("base-url", api.DefaultBaseURL, "Content-sources API base URL")
	flags.String("token", "", "Bearer token for the API")
	flags.Duration("timeout", api.DefaultTimeout, "Timeout of each API request")

	_ = v.BindPFlag(config.KeyBaseURL, flags.Lookup("base-url"))
	_ = v.BindPFlag(config.KeyToken, flags.Lookup("token"))
	_ = v.BindPFlag(config.KeyTimeout, flags.Lookup("timeout"))

	// Add subcommands
	rootCmd.AddCommand(NewAddCmd(v))
	rootCmd.AddCommand(NewListCmd(v))
	rootCmd.AddCommand(NewParamsCmd(v))
	rootCmd.AddCommand(NewFetchKeyCmd(v))

	return rootCmd
}

// newClient loads the configuration and builds an API client from it
func newClient(v *viper.Viper) (*config.Config, *api.Client, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	logrus.Debugf("Configuration: base_url=%s timeout=%s debounce=%s max_rows=%d",
		cfg.BaseURL, cfg.Timeout, cfg.Debounce, cfg.MaxRows)

	client, err := api.NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}
