// Package classify suggests a category and priority for a complaint from
// keywords in its text.
package classify

import (
	"strings"

	"github.com/joescharf/hostel/internal/models"
)

// Suggestion is a proposed classification.
type Suggestion struct {
	Category models.ComplaintCategory `json:"category"`
	Priority models.ComplaintPriority `json:"priority"`
}

// categoryKeywords are checked in order; the first category with a match wins.
var categoryKeywords = []struct {
	category models.ComplaintCategory
	words    []string
}{
	{models.CategoryPlumbing, []string{
		"leak", "tap", "faucet", "pipe", "drain", "toilet", "flush", "shower",
		"water", "sink", "clog", "geyser", "plumb",
	}},
	{models.CategoryElectricity, []string{
		"power", "socket", "switch", "light", "bulb", "tube", "fan", "wiring",
		"electric", "spark", "fuse", "voltage", "plug",
	}},
	{models.CategoryInternet, []string{
		"wifi", "wi-fi", "internet", "network", "router", "lan", "ethernet",
		"bandwidth", "connectivity", "signal",
	}},
	{models.CategoryCleanliness, []string{
		"dirty", "clean", "garbage", "trash", "dust", "smell", "stink",
		"pest", "cockroach", "rat", "mosquito", "sweep", "housekeeping",
	}},
	{models.CategoryRoom, []string{
		"door", "window", "lock", "latch", "bed", "mattress", "chair", "table",
		"cupboard", "wardrobe", "furniture", "wall", "ceiling", "paint",
	}},
}

// Category infers the category from free text. Defaults to other.
func Category(text string) models.ComplaintCategory {
	lower := strings.ToLower(text)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.words {
			if strings.Contains(lower, kw) {
				return ck.category
			}
		}
	}
	return models.CategoryOther
}

// Priority infers the priority from free text.
// High keywords are checked before low keywords. Defaults to medium.
func Priority(text string) models.ComplaintPriority {
	lower := strings.ToLower(text)

	highKeywords := []string{
		"urgent", "emergency", "spark", "shock", "fire", "smoke", "flood",
		"overflow", "no water", "no power", "unsafe", "danger", "injur",
		"broken lock", "cannot lock", "can't lock",
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return models.PriorityHigh
		}
	}

	lowKeywords := []string{
		"minor", "cosmetic", "slight", "small", "whenever",
		"not urgent", "low priority", "paint",
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return models.PriorityLow
		}
	}

	return models.PriorityMedium
}

// Suggest classifies a complaint from its title and description.
// The title is weighed first: a category found in the title beats one found
// only in the description.
func Suggest(title, description string) Suggestion {
	cat := Category(title)
	if cat == models.CategoryOther {
		cat = Category(description)
	}
	return Suggestion{
		Category: cat,
		Priority: Priority(title + "\n" + description),
	}
}
