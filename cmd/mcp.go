package cmd

import (
	"context"
	"fmt"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/hostel/internal/mcp"
	"github.com/joescharf/hostel/internal/models"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

The server logs in once as mcp.email / mcp.role and every tool call acts
as that user. Configure an MCP client with:

  {
    "mcpServers": {
      "hostel": { "command": "hostel", "args": ["mcp"] }
    }
  }

Available tools: hostel_list_complaints, hostel_get_complaint,
hostel_complaint_stats, hostel_submit_complaint, hostel_update_status,
hostel_assign_complaint, hostel_list_staff`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	role, err := models.ParseRole(viper.GetString("mcp.role"))
	if err != nil {
		return fmt.Errorf("mcp.role: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	// stdout carries the protocol, so no confirmation notices here.
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	hostelApp = a

	sess, err := a.login(ctx, role, viper.GetString("mcp.email"))
	if err != nil {
		return err
	}
	a.logger.Info("mcp server starting", "user", sess.User.ID, "role", sess.User.Role)

	return mcp.NewServer(a.dash, sess, buildVersion).ServeStdio(ctx)
}
