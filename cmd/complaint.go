package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/output"
)

var (
	complaintAs       string
	complaintEmail    string
	complaintSearch   string
	complaintStatus   string
	complaintPriority string
	complaintTab      string
	complaintTitle    string
	complaintDesc     string
	complaintCategory string
	complaintUrgency  string
)

var complaintCmd = &cobra.Command{
	Use:     "complaint",
	Aliases: []string{"c"},
	Short:   "List, show and manage complaints",
	Long: `List, show and manage hostel complaints.

Each invocation logs in as the given role (--as) and works on the configured
store. With the default memory backend that is a freshly seeded list; set
store.backend to sqlite to keep changes between runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return complaintListRun()
	},
}

var complaintListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List complaints",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return complaintListRun()
	},
}

var complaintShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show complaint details",
	Long:  "Show one complaint. <id> may be any unique prefix of the complaint id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return complaintShowRun(args[0])
	},
}

var complaintSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new complaint as a student",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return complaintSubmitRun()
	},
}

var complaintStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change a complaint's status (warden)",
	Long:  "Change a complaint's status. Statuses: submitted, assigned, in-progress, resolved, closed.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return complaintStatusRun(args[0], args[1])
	},
}

var complaintAssignCmd = &cobra.Command{
	Use:   "assign <id> [assignee]",
	Short: "Assign a complaint to a staff team (warden)",
	Long:  "Assign a complaint to a staff team. Without [assignee] the assignment is cleared.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var assignee string
		if len(args) > 1 {
			assignee = args[1]
		}
		return complaintAssignRun(args[0], assignee)
	},
}

var complaintFeedbackCmd = &cobra.Command{
	Use:   "feedback <id> <rating> [comment]",
	Short: "Rate a resolved complaint (student)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var comment string
		if len(args) > 2 {
			comment = args[2]
		}
		return complaintFeedbackRun(args[0], args[1], comment)
	},
}

func init() {
	complaintCmd.PersistentFlags().StringVar(&complaintAs, "as", "", "Role to log in as: student, warden (default depends on the command)")
	complaintCmd.PersistentFlags().StringVar(&complaintEmail, "email", "", "Email to log in with (default: first roster user with the role)")

	for _, c := range []*cobra.Command{complaintCmd, complaintListCmd} {
		c.Flags().StringVarP(&complaintSearch, "search", "q", "", "Search title, student name and room number")
		c.Flags().StringVar(&complaintStatus, "status", "all", "Filter by status")
		c.Flags().StringVar(&complaintPriority, "priority", "all", "Filter by priority: all, low, medium, high")
		c.Flags().StringVar(&complaintTab, "tab", "all", "Dashboard tab: all, active, resolved, pending (warden)")
	}

	complaintSubmitCmd.Flags().StringVarP(&complaintTitle, "title", "t", "", "Complaint title (required)")
	complaintSubmitCmd.Flags().StringVarP(&complaintDesc, "description", "d", "", "Complaint description (required)")
	complaintSubmitCmd.Flags().StringVar(&complaintCategory, "category", "", "plumbing, electricity, cleanliness, internet, room, other (default: other)")
	complaintSubmitCmd.Flags().StringVar(&complaintUrgency, "priority", "", "low, medium, high (default: medium)")

	complaintCmd.AddCommand(complaintListCmd)
	complaintCmd.AddCommand(complaintShowCmd)
	complaintCmd.AddCommand(complaintSubmitCmd)
	complaintCmd.AddCommand(complaintStatusCmd)
	complaintCmd.AddCommand(complaintAssignCmd)
	complaintCmd.AddCommand(complaintFeedbackCmd)
	rootCmd.AddCommand(complaintCmd)
}

// cliSession logs in with --as/--email, falling back to def for the role.
func cliSession(ctx context.Context, a *app, def models.UserRole) (*identity.Session, error) {
	role := def
	if complaintAs != "" {
		r, err := models.ParseRole(complaintAs)
		if err != nil {
			return nil, err
		}
		role = r
	}
	return a.login(ctx, role, complaintEmail)
}

func complaintListRun() error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleWarden)
	if err != nil {
		return err
	}
	q := filter.Query{
		Search:   complaintSearch,
		Status:   complaintStatus,
		Priority: complaintPriority,
		Tab:      filter.Tab(complaintTab),
	}
	return listComplaints(ctx, a, sess, q)
}

func complaintShowRun(ref string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleWarden)
	if err != nil {
		return err
	}
	return showComplaint(ctx, a, sess, ref)
}

func complaintSubmitRun() error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleStudent)
	if err != nil {
		return err
	}
	draft := models.ComplaintDraft{
		Title:       complaintTitle,
		Description: complaintDesc,
		Category:    models.ComplaintCategory(complaintCategory),
		Priority:    models.ComplaintPriority(complaintUrgency),
	}
	return submitComplaint(ctx, a, sess, draft)
}

func complaintStatusRun(ref, status string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleWarden)
	if err != nil {
		return err
	}
	return setComplaintStatus(ctx, a, sess, ref, status)
}

func complaintAssignRun(ref, assignee string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleWarden)
	if err != nil {
		return err
	}
	return assignComplaint(ctx, a, sess, ref, assignee)
}

func complaintFeedbackRun(ref, rating, comment string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	sess, err := cliSession(ctx, a, models.RoleStudent)
	if err != nil {
		return err
	}
	return giveFeedback(ctx, a, sess, ref, rating, comment)
}

// --- Actions shared by the one-shot commands and the shell ---

func listComplaints(ctx context.Context, a *app, sess *identity.Session, q filter.Query) error {
	snap, err := a.dash.List(ctx, sess, q)
	if err != nil {
		return err
	}
	if len(snap.Complaints) == 0 {
		ui.Info("No complaints found.")
		return nil
	}

	headers := []string{"ID", "Title", "Category", "Priority", "Status", "Created"}
	if snap.View == filter.ViewWarden {
		headers = []string{"ID", "Title", "Student", "Room", "Category", "Priority", "Status", "Assigned To"}
	}
	table := ui.Table(headers)
	for _, c := range snap.Complaints {
		row := []string{
			shortID(c.ID),
			c.Title,
			c.Category.Label(),
			output.PriorityColor(c.Priority),
			output.StatusColor(c.Status),
			c.CreatedAt.Format("2006-01-02"),
		}
		if snap.View == filter.ViewWarden {
			row = []string{
				shortID(c.ID),
				c.Title,
				c.StudentName,
				roomLabel(c),
				c.Category.Label(),
				output.PriorityColor(c.Priority),
				output.StatusColor(c.Status),
				c.AssignedTo,
			}
		}
		_ = table.Append(row)
	}
	_ = table.Render()
	ui.VerboseLog("%d of %d complaints (revision %d)", len(snap.Complaints), snap.Total, snap.Revision)
	return nil
}

func showComplaint(ctx context.Context, a *app, sess *identity.Session, ref string) error {
	c, err := a.dash.Get(ctx, sess, ref)
	if err != nil {
		return err
	}
	printComplaint(c)
	return nil
}

func printComplaint(c *models.Complaint) {
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(c.ID)), c.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(c.Status))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(c.Priority))
	fmt.Fprintf(ui.Out, "  Category:   %s\n", c.Category.Label())
	fmt.Fprintf(ui.Out, "  Student:    %s (%s)\n", c.StudentName, roomLabel(c))
	if c.AssignedTo != "" {
		fmt.Fprintf(ui.Out, "  Assigned:   %s\n", c.AssignedTo)
	}
	if c.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", c.Description)
	}
	fmt.Fprintf(ui.Out, "  Created:    %s\n", c.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", c.UpdatedAt.Format(time.RFC3339))
	if c.ResolvedAt != nil {
		fmt.Fprintf(ui.Out, "  Resolved:   %s\n", c.ResolvedAt.Format(time.RFC3339))
	}
	if c.Rating > 0 {
		fmt.Fprintf(ui.Out, "  Rating:     %s\n", output.Rating(c.Rating))
	}
	if c.Feedback != "" {
		fmt.Fprintf(ui.Out, "  Feedback:   %s\n", c.Feedback)
	}
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", c.ID)
}

func submitComplaint(ctx context.Context, a *app, sess *identity.Session, draft models.ComplaintDraft) error {
	c, err := a.dash.Submit(ctx, sess, draft)
	if err != nil {
		return err
	}
	ui.VerboseLog("Created %s", c.ID)
	printComplaint(c)
	return nil
}

func setComplaintStatus(ctx context.Context, a *app, sess *identity.Session, ref, status string) error {
	st, err := models.ParseStatus(strings.TrimSpace(status))
	if err != nil {
		return err
	}
	c, err := a.dash.Get(ctx, sess, ref)
	if err != nil {
		return err
	}
	_, err = a.dash.UpdateStatus(ctx, sess, c.ID, st)
	return err
}

func assignComplaint(ctx context.Context, a *app, sess *identity.Session, ref, assignee string) error {
	c, err := a.dash.Get(ctx, sess, ref)
	if err != nil {
		return err
	}
	if assignee != "" && !a.seed.IsStaff(assignee) {
		ui.Warning("%q is not on the staff roster", assignee)
	}
	_, err = a.dash.Assign(ctx, sess, c.ID, assignee)
	return err
}

func giveFeedback(ctx context.Context, a *app, sess *identity.Session, ref, rating, comment string) error {
	n, err := strconv.Atoi(strings.TrimSpace(rating))
	if err != nil {
		return fmt.Errorf("rating must be a number from 1 to 5: %q", rating)
	}
	c, err := a.dash.Get(ctx, sess, ref)
	if err != nil {
		return err
	}
	_, err = a.dash.SubmitFeedback(ctx, sess, c.ID, n, comment)
	return err
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func roomLabel(c *models.Complaint) string {
	if c.HostelBlock == "" {
		return "Room " + c.RoomNumber
	}
	return fmt.Sprintf("Room %s, %s", c.RoomNumber, c.HostelBlock)
}
