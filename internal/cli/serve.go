package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"eidrag/internal/scheduler"
	"eidrag/internal/server"
)

var (
	servePort string
	serveGops bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the ingestion scheduler",
	Long: `Serves the /api/rag endpoints. When auto-indexing is enabled and the
embedding key and vector store are configured, ingestion runs shortly after
startup, on every interval tick and whenever the sources file changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides config and PORT)")
	serveCmd.Flags().BoolVar(&serveGops, "gops", false, "start the gops diagnostics agent")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveGops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			return fmt.Errorf("starting gops agent: %w", err)
		}
		defer agent.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := a.newScheduler()
	if ok, reason := scheduler.Eligible(cfg); ok {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	} else {
		log.Info("automatic ingestion off: %s", reason)
	}
	defer sched.Stop()

	port := cfg.Server.Port
	if servePort != "" {
		port = servePort
	}
	return server.Run(ctx, server.New(port, a.service, sched, a.validator))
}
