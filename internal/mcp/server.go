package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/hostel/internal/dashboard"
	"github.com/joescharf/hostel/internal/filter"
	"github.com/joescharf/hostel/internal/identity"
	"github.com/joescharf/hostel/internal/models"
)

// Server exposes the complaint dashboard as MCP tools. Every tool call acts
// as the session the server was started with.
type Server struct {
	dash    *dashboard.Service
	session *identity.Session
	version string
}

// NewServer creates the MCP server wrapper for one logged in session.
func NewServer(dash *dashboard.Service, sess *identity.Session, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{dash: dash, session: sess, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("hostel", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listComplaintsTool())
	srv.AddTool(s.getComplaintTool())
	srv.AddTool(s.complaintStatsTool())
	srv.AddTool(s.submitComplaintTool())
	srv.AddTool(s.updateStatusTool())
	srv.AddTool(s.assignComplaintTool())
	srv.AddTool(s.listStaffTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func statusNames() []string {
	out := make([]string, len(models.AllStatuses))
	for i, st := range models.AllStatuses {
		out[i] = string(st)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// hostel_list_complaints
func (s *Server) listComplaintsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_list_complaints",
		mcp.WithDescription("List hostel complaints visible to the current session, newest first. Students see only their own complaints. Returns a JSON object with complaints (id, title, description, category, priority, status, student_name, room_number, hostel_block, assigned_to, timestamps), total and revision."),
		mcp.WithString("search", mcp.Description("Case-insensitive text matched against title, student name and room number")),
		mcp.WithString("status", mcp.Description("Status filter: all, "+strings.Join(statusNames(), ", "))),
		mcp.WithString("priority", mcp.Description("Priority filter: all, low, medium, high")),
		mcp.WithString("tab", mcp.Description("Dashboard tab: all, active, resolved (students); all, pending, active, resolved (wardens)")),
	)
	return tool, s.handleListComplaints
}

func (s *Server) handleListComplaints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := filter.Query{
		Search:   request.GetString("search", ""),
		Status:   request.GetString("status", ""),
		Priority: request.GetString("priority", ""),
		Tab:      filter.Tab(request.GetString("tab", "")),
	}
	snap, err := s.dash.List(ctx, s.session, q)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list complaints: %v", err)), nil
	}
	return jsonResult(snap)
}

// hostel_get_complaint
func (s *Server) getComplaintTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_get_complaint",
		mcp.WithDescription("Get one complaint by id or unique id prefix, including feedback and rating once resolved."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Complaint id or a unique prefix of it")),
	)
	return tool, s.handleGetComplaint
}

func (s *Server) handleGetComplaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	c, err := s.dash.Get(ctx, s.session, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

// hostel_complaint_stats
func (s *Server) complaintStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_complaint_stats",
		mcp.WithDescription("Summary counts for the complaints visible to the current session: totals by status and priority, open high-priority count, category distribution and resolution metrics."),
	)
	return tool, s.handleComplaintStats
}

func (s *Server) handleComplaintStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.dash.Stats(ctx, s.session)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute stats: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"stats": st,
		"cards": st.Cards(filter.ViewFor(s.session.User.Role)),
	})
}

// hostel_submit_complaint
func (s *Server) submitComplaintTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_submit_complaint",
		mcp.WithDescription("Submit a new complaint as the current student. Room and block are taken from the student's profile."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short summary of the problem")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What is wrong and where")),
		mcp.WithString("category", mcp.Description("plumbing, electricity, cleanliness, internet, room or other (default: other)")),
		mcp.WithString("priority", mcp.Description("low, medium or high (default: medium)")),
	)
	return tool, s.handleSubmitComplaint
}

func (s *Server) handleSubmitComplaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	draft := models.ComplaintDraft{
		Title:       request.GetString("title", ""),
		Description: request.GetString("description", ""),
		Category:    models.ComplaintCategory(request.GetString("category", "")),
		Priority:    models.ComplaintPriority(request.GetString("priority", "")),
	}
	c, err := s.dash.Submit(ctx, s.session, draft)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

// hostel_update_status
func (s *Server) updateStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_update_status",
		mcp.WithDescription("Change a complaint's status (wardens only). Moving to resolved or closed records the resolution time."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Complaint id or unique prefix")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum(statusNames()...)),
	)
	return tool, s.handleUpdateStatus
}

func (s *Server) handleUpdateStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	raw, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}
	status, err := models.ParseStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.dash.Get(ctx, s.session, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updated, err := s.dash.UpdateStatus(ctx, s.session, c.ID, status)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(updated)
}

// hostel_assign_complaint
func (s *Server) assignComplaintTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_assign_complaint",
		mcp.WithDescription("Assign a complaint to a staff team (wardens only). A submitted complaint moves to assigned. An empty assignee clears the assignment."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Complaint id or unique prefix")),
		mcp.WithString("assignee", mcp.Description("Staff team name, see hostel_list_staff")),
	)
	return tool, s.handleAssignComplaint
}

func (s *Server) handleAssignComplaint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	c, err := s.dash.Get(ctx, s.session, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updated, err := s.dash.Assign(ctx, s.session, c.ID, request.GetString("assignee", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(updated)
}

// hostel_list_staff
func (s *Server) listStaffTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("hostel_list_staff",
		mcp.WithDescription("List the maintenance staff teams complaints can be assigned to (wardens only)."),
	)
	return tool, s.handleListStaff
}

func (s *Server) handleListStaff(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	staff, err := s.dash.Staff(s.session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(staff)
}
