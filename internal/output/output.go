package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/hostel/internal/models"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	noticePrefix  = color.New(color.FgHiMagenta).Sprint("\u2605")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// StatusColor returns the status label colored by complaint status.
func StatusColor(status models.ComplaintStatus) string {
	label := status.Label()
	switch status {
	case models.StatusSubmitted:
		return yellow(label)
	case models.StatusAssigned:
		return magenta(label)
	case models.StatusInProgress:
		return cyan(label)
	case models.StatusResolved:
		return green(label)
	case models.StatusClosed:
		return label
	default:
		return string(status)
	}
}

// PriorityColor returns the priority label colored by urgency.
func PriorityColor(p models.ComplaintPriority) string {
	label := p.Label()
	switch p {
	case models.PriorityHigh:
		return red(label)
	case models.PriorityMedium:
		return yellow(label)
	case models.PriorityLow:
		return green(label)
	default:
		return string(p)
	}
}

// Rating renders a 1-5 rating as stars, or "-" when unrated.
func Rating(r int) string {
	if r <= 0 {
		return "-"
	}
	if r > 5 {
		r = 5
	}
	return yellow(strings.Repeat("\u2605", r)) + strings.Repeat("\u2606", 5-r)
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Notice prints a confirmation for something that just changed.
func (u *UI) Notice(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", noticePrefix, fmt.Sprintf(format, a...))
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
