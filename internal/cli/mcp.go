package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"eidrag/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge tools over MCP (stdio)",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing
search_knowledge, answer_from_urls and related_questions. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.New(a.service).Run(ctx)
}
