package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/hostel/internal/classify"
	"github.com/joescharf/hostel/internal/output"
)

var (
	classifyUseLLM bool
	classifyDesc   string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <title>",
	Short: "Suggest a category and priority for a complaint",
	Long: `Suggest a category and priority for a complaint from its text.

Keyword rules are used by default. With --llm the complaint is sent to the
configured Anthropic model, which also suggests a staff team.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return classifyRun(strings.Join(args, " "))
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyUseLLM, "llm", false, "Classify with the Anthropic API")
	classifyCmd.Flags().StringVarP(&classifyDesc, "description", "d", "", "Complaint description")
	rootCmd.AddCommand(classifyCmd)
}

func classifyRun(title string) error {
	if classifyUseLLM {
		return classifyWithLLM(title, classifyDesc)
	}

	s := classify.Suggest(title, classifyDesc)
	fmt.Fprintf(ui.Out, "  Category:   %s\n", s.Category.Label())
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(s.Priority))
	return nil
}

func classifyWithLLM(title, description string) error {
	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	a, err := getApp()
	if err != nil {
		return err
	}

	ui.VerboseLog("Asking the model to classify %q", title)
	result, err := client.ClassifyComplaint(context.Background(), title, description, a.seed.Staff)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "  Category:   %s\n", result.Category.Label())
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(result.Priority))
	if result.Assignee != "" {
		fmt.Fprintf(ui.Out, "  Assign to:  %s\n", result.Assignee)
	}
	if result.Reason != "" {
		fmt.Fprintf(ui.Out, "  Reason:     %s\n", result.Reason)
	}
	return nil
}
