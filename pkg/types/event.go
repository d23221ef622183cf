package types

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// EventRecord is a normalized community event loaded from the corpus source.
// Records are immutable after construction; a fresh corpus load replaces the
// whole set rather than mutating individual records.
type EventRecord struct {
	// ID is derived from title+description content, not row position, so the
	// same event keeps the same ID across reloads and upstream schema churn.
	// Two rows with identical title and description deliberately collide and
	// are treated as one logical event (their feedback merges).
	ID string `json:"id"`

	// Display attributes. Missing source values normalize to "", never to a
	// "nan"/"null" sentinel that could leak into rendered text.
	Title        string `json:"title"`
	Description  string `json:"description"`
	Organization string `json:"organization,omitempty"`
	Location     string `json:"location,omitempty"`
	Date         string `json:"date,omitempty"`

	// Categorical tags, each optional.
	Theme    string `json:"theme,omitempty"`    // topical theme (Nature, Education, ...)
	Activity string `json:"activity,omitempty"` // activity type
	Effort   string `json:"effort,omitempty"`   // effort estimate
	Mood     string `json:"mood,omitempty"`     // mood/intent tag (Reflect, Connect, Uplift)
	Weather  string `json:"weather,omitempty"`  // weather badge
	Postcode string `json:"postcode,omitempty"`

	// SearchText is the lower-cased concatenation of title, description and
	// tag fields. Always recomputed at load time, never hand-edited.
	SearchText string `json:"-"`
}

// EventID derives the stable content hash identifier for an event.
func EventID(title, description string) string {
	sum := sha256.Sum256([]byte(title + description))
	return fmt.Sprintf("evt:%x", sum[:12])
}

// BuildSearchText derives the searchable blob from the record's display and
// tag fields. Called by the corpus loader whenever a contributing field is set.
func (e *EventRecord) BuildSearchText() {
	parts := []string{
		e.Title, e.Description, e.Theme, e.Activity,
		e.Effort, e.Mood, e.Weather, e.Organization, e.Location,
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	e.SearchText = strings.ToLower(strings.Join(kept, " "))
}

// Mood inference keyword rules, checked in order against the description.
// Only the first matching rule applies.
var moodRules = []struct {
	mood     string
	keywords []string
}{
	{MoodReflect, []string{"reflect", "quiet", "calm", "mindful", "memorial", "remember"}},
	{MoodConnect, []string{"connect", "together", "community", "social", "companionship", "neighbors"}},
	{MoodUplift, []string{"uplift", "fun", "celebrate", "joy", "energize", "cheer"}},
}

// Mood tag values produced by inference.
const (
	MoodReflect = "Reflect"
	MoodConnect = "Connect"
	MoodUplift  = "Uplift"
)

// InferMood resolves the record's mood tag. An explicit non-empty tag is used
// as-is; otherwise the description is matched against the ordered rule list
// (reflect, then connect, then uplift). No match leaves the mood empty.
func (e *EventRecord) InferMood() string {
	if strings.TrimSpace(e.Mood) != "" {
		return e.Mood
	}
	desc := strings.ToLower(e.Description)
	for _, rule := range moodRules {
		for _, kw := range rule.keywords {
			if strings.Contains(desc, kw) {
				return rule.mood
			}
		}
	}
	return ""
}
