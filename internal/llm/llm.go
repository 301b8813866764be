package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/hostel/internal/models"
)

// Classification holds the LLM's suggested handling for a complaint.
type Classification struct {
	Category models.ComplaintCategory `json:"category"`
	Priority models.ComplaintPriority `json:"priority"`
	Assignee string                   `json:"assignee"`
	Reason   string                   `json:"reason"`
}

// Client wraps the Anthropic API for complaint triage.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildClassifyPrompt constructs the system and user prompts for complaint classification.
func buildClassifyPrompt(title, description string, staff []string) (system string, user string) {
	system = `You triage maintenance complaints filed by students in a hostel. Return ONLY a JSON object with these fields:
- "category": one of "plumbing", "electricity", "cleanliness", "internet", "room", "other"
- "priority": one of "low", "medium", "high"
- "assignee": the staff team best suited to handle it, chosen from the staff list (empty string if none fits)
- "reason": one short sentence explaining the choice

Rules:
- Anything that risks injury, flooding, fire or leaves a student without water, power or a lockable room is "high"
- Cosmetic issues are "low"
- Default priority to "medium" unless the text suggests otherwise
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	if len(staff) > 0 {
		sb.WriteString("Staff: ")
		sb.WriteString(strings.Join(staff, ", "))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Complaint title: ")
	sb.WriteString(title)
	sb.WriteString("\n")
	if description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(description)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// ClassifyComplaint asks the LLM to classify a complaint and pick a staff team.
func (c *Client) ClassifyComplaint(ctx context.Context, title, description string, staff []string) (*Classification, error) {
	systemPrompt, userPrompt := buildClassifyPrompt(title, description, staff)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return parseClassification(text, staff)
}

// parseClassification decodes the LLM response and normalizes unknown values.
func parseClassification(text string, staff []string) (*Classification, error) {
	text = stripFence(text)

	var out Classification
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}

	if !out.Category.Valid() {
		out.Category = models.CategoryOther
	}
	if !out.Priority.Valid() {
		out.Priority = models.PriorityMedium
	}
	if out.Assignee != "" && len(staff) > 0 {
		known := false
		for _, s := range staff {
			if strings.EqualFold(s, out.Assignee) {
				out.Assignee = s
				known = true
				break
			}
		}
		if !known {
			out.Assignee = ""
		}
	}
	return &out, nil
}

// stripFence removes markdown code fencing around a response if present.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
