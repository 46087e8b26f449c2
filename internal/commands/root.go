package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"medrag/internal/app"
	"medrag/internal/config"
	"medrag/internal/logger"
)

var (
	cfgFile    string
	apiKeyFlag string

	currentConfig *config.AppConfig
	configPath    string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:          "medrag",
	Short:        "medrag answers health questions from the MedQuAD knowledge base",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg *config.AppConfig
			err error
		)
		if cfgFile == "" {
			cfg, configPath, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(cfgFile)
			configPath = cfgFile
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		currentConfig = cfg
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./config.yaml, then ~/.config/medrag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "generation API key (overrides the configured environment variable)")
}

// newApp assembles the pipeline with logs written to w.
func newApp(w io.Writer) (*app.App, error) {
	return app.New(currentConfig, logger.New(w).With("config", configPath), apiKeyFlag)
}
