package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/output"
	"github.com/joescharf/hostel/internal/report"
)

var statsAs string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics",
	Long:  "Show the stat cards, category distribution and resolution metrics for a role's dashboard.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun()
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsAs, "as", "warden", "Role to log in as: student, warden")
	rootCmd.AddCommand(statsCmd)
}

func statsRun() error {
	role, err := models.ParseRole(statsAs)
	if err != nil {
		return err
	}
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := a.login(ctx, role, "")
	if err != nil {
		return err
	}
	return showStats(ctx, a, sess)
}

func showStats(ctx context.Context, a *app, sess *identity.Session) error {
	st, err := a.dash.Stats(ctx, sess)
	if err != nil {
		return err
	}

	for _, card := range st.Cards(filter.ViewFor(sess.User.Role)) {
		fmt.Fprintf(ui.Out, "  %-18s %s\n", card.Label, output.Cyan(fmt.Sprint(card.Value)))
	}
	fmt.Fprintln(ui.Out)

	if len(st.Categories) > 0 {
		table := ui.Table([]string{"Category", "Count"})
		for _, cc := range st.Categories {
			_ = table.Append([]string{cc.Category.Label(), fmt.Sprint(cc.Count)})
		}
		_ = table.Render()
		fmt.Fprintln(ui.Out)
	}

	fmt.Fprintf(ui.Out, "  Resolution rate:  %.0f%%\n", st.Resolution.Rate*100)
	if st.Resolution.Measured > 0 {
		fmt.Fprintf(ui.Out, "  Avg resolution:   %s\n", report.FormatDuration(st.Resolution.Average))
		fmt.Fprintf(ui.Out, "  Fastest/slowest:  %s / %s\n",
			report.FormatDuration(st.Resolution.Fastest), report.FormatDuration(st.Resolution.Slowest))
	}
	return nil
}
