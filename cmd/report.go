package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/report"
)

var (
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the warden's complaint report",
	Long:  "Generate a report of every complaint with summary statistics as Markdown, HTML, JSON or CSV.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "Output format: markdown, html, json, csv")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}

func reportRun() error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := a.login(ctx, models.RoleWarden, "")
	if err != nil {
		return err
	}

	complaints, st, err := a.dash.Export(ctx, sess)
	if err != nil {
		return err
	}
	r := report.New(complaints, st, time.Now())

	if reportOutput == "" {
		return r.Write(ui.Out, format)
	}

	f, err := os.Create(reportOutput)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := r.Write(f, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.Success("Report written to %s", reportOutput)
	return nil
}
