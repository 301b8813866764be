// Package report renders the warden's complaint report in several formats.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/models"
	"github.com/joescharf/hostel/internal/stats"
)

// Format is an output format for Write.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ParseFormat converts a string into a Format. "md" is accepted for markdown.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(v) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format: %s (use: markdown, html, json, csv)", v)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Report is the data a report is rendered from.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Stats       stats.Stats         `json:"stats"`
	Complaints  []*models.Complaint `json:"complaints"`
}

// New builds a report over complaints.
func New(complaints []*models.Complaint, st stats.Stats, now time.Time) *Report {
	return &Report{GeneratedAt: now, Stats: st, Complaints: complaints}
}

// Write renders r to w in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, r.Markdown())
		return err
	case FormatHTML:
		out, err := r.HTML()
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatCSV:
		return r.writeCSV(w)
	default:
		return fmt.Errorf("unknown format: %s", f)
	}
}

// Markdown renders the report as markdown.
func (r *Report) Markdown() string {
	var b strings.Builder
	s := r.Stats

	fmt.Fprintln(&b, "# Hostel Complaints Report")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Generated %s\n", r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "## Summary")
	fmt.Fprintln(&b)
	for _, c := range s.Cards(filter.ViewWarden) {
		fmt.Fprintf(&b, "- %s: %d\n", c.Label, c.Value)
	}
	fmt.Fprintf(&b, "- Resolution rate: %.0f%%\n", s.Resolution.Rate*100)
	if s.Resolution.Measured > 0 {
		fmt.Fprintf(&b, "- Average resolution time: %s\n", FormatDuration(s.Resolution.Average))
	}
	fmt.Fprintln(&b)

	if len(s.Categories) > 0 {
		fmt.Fprintln(&b, "## By Category")
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "| Category | Count |")
		fmt.Fprintln(&b, "|----------|-------|")
		for _, cc := range s.Categories {
			fmt.Fprintf(&b, "| %s | %d |\n", cc.Category.Label(), cc.Count)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "## Complaints")
	fmt.Fprintln(&b)
	if len(r.Complaints) == 0 {
		fmt.Fprintln(&b, "No complaints.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Title | Student | Room | Category | Priority | Status | Assigned To |")
	fmt.Fprintln(&b, "|-------|---------|------|----------|----------|--------|-------------|")
	for _, c := range r.Complaints {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			cell(c.Title), cell(c.StudentName), cell(roomLabel(c)),
			c.Category.Label(), c.Priority.Label(), c.Status.Label(), cell(dash(c.AssignedTo)))
	}
	return b.String()
}

// HTML renders the markdown report to sanitized HTML.
func (r *Report) HTML() (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3")
	return policy.Sanitize(buf.String()), nil
}

func (r *Report) writeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"ID", "Title", "Student", "Room", "Block", "Category", "Priority", "Status", "AssignedTo", "Created", "Resolved", "Rating"})
	for _, c := range r.Complaints {
		resolved := ""
		if c.ResolvedAt != nil {
			resolved = c.ResolvedAt.Format(time.RFC3339)
		}
		rating := ""
		if c.Rating > 0 {
			rating = strconv.Itoa(c.Rating)
		}
		_ = cw.Write([]string{
			c.ID, c.Title, c.StudentName, c.RoomNumber, c.HostelBlock,
			string(c.Category), string(c.Priority), string(c.Status), c.AssignedTo,
			c.CreatedAt.Format(time.RFC3339), resolved, rating,
		})
	}
	cw.Flush()
	return cw.Error()
}

// FormatDuration renders d in days and hours, rounded to the hour.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Hour)
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	default:
		return fmt.Sprintf("%dh", hours)
	}
}

func roomLabel(c *models.Complaint) string {
	if c.HostelBlock == "" {
		return c.RoomNumber
	}
	return c.HostelBlock + " " + c.RoomNumber
}

// cell escapes a value for a markdown table cell.
func cell(v string) string {
	v = strings.ReplaceAll(v, "|", `\|`)
	return strings.ReplaceAll(v, "\n", " ")
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
