package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"eidrag/internal/config"
	gem "eidrag/internal/gemini"
	"eidrag/internal/llm/gemini"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the Gemini models visible to the configured key",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	g := cfg.Generator.Gemini
	if g == nil {
		g = &config.GeminiConfig{}
	}
	client := gem.New(gem.Config{BaseURL: g.BaseURL, APIKey: g.APIKey, Timeout: time.Duration(g.TimeoutSecs) * time.Second})
	if !client.Configured() {
		return errors.New("GEMINI_API_KEY not set")
	}
	models, err := gemini.NewCompleter(client).ListModels(context.Background())
	if err != nil {
		return err
	}
	for _, m := range models {
		cmd.Printf("%-45s %s\n", strings.TrimPrefix(m.Name, "models/"), strings.Join(m.SupportedGenerationMethods, ","))
	}
	return nil
}
