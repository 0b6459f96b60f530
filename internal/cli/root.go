// Package cli implements the eidrag command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eidrag/internal/config"
	"eidrag/internal/logger"
)

var log = logger.New("eidrag")

var (
	cfgPath string
	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "eidrag",
	Short: "Grounded answers from trusted Islamic sites",
	Long: `eidrag crawls a fixed set of trusted sites, indexes their text as vectors
and answers questions from the indexed sources with a language model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		c, err := loadConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/eidrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(path string) (*config.AppConfig, error) {
	var (
		c   *config.AppConfig
		err error
	)
	if path == "" {
		c, path, err = config.LoadDefault()
	} else {
		c, err = config.Load(path)
	}
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(c, os.Getenv)
	log.Debug("config loaded from %s", path)
	return c, nil
}
