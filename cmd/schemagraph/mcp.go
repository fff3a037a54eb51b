package schemagraph

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundprediction/schemagraph/pkg/mcp"
	"github.com/soundprediction/schemagraph/pkg/server/handlers"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Model Context Protocol (MCP) server",
	Long: `Start the Model Context Protocol (MCP) server over stdio.

The MCP server provides tools for:
- search_schema: multi-level schema search with table context
- search_by_label: semantic search over one node label
- get_table_context: full context of a single table

Logs go to stderr so stdout stays reserved for protocol messages.`,
	RunE: runMCPServer,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	addStoreFlags(mcpCmd)
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateStoreConfig(cfg); err != nil {
		return fmt.Errorf("invalid MCP configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize schemagraph: %w", err)
	}
	defer a.Close(context.Background())

	server, err := mcp.NewServer(ctx, a.client, mcp.Options{
		Name:    "schemagraph",
		Version: handlers.Version,
		Logger:  a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	a.logger.Info("MCP server stopped")
	return nil
}
