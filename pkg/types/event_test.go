package types

import (
	"strings"
	"testing"
)

func TestEventIDStableAcrossCalls(t *testing.T) {
	a := EventID("Park Cleanup", "Join us to clean the park")
	b := EventID("Park Cleanup", "Join us to clean the park")
	if a != b {
		t.Errorf("identical content produced different ids: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "evt:") {
		t.Errorf("id missing evt: prefix: %q", a)
	}
}

func TestEventIDContentSensitive(t *testing.T) {
	a := EventID("Park Cleanup", "Join us")
	b := EventID("Park Cleanup", "Join us!")
	if a == b {
		t.Error("different descriptions produced the same id")
	}
}

func TestBuildSearchTextLowercasesAndSkipsEmpty(t *testing.T) {
	e := EventRecord{
		Title:       "Tutoring Session",
		Description: "Help KIDS with homework",
		Theme:       "Education",
	}
	e.BuildSearchText()

	if e.SearchText != "tutoring session help kids with homework education" {
		t.Errorf("unexpected search text: %q", e.SearchText)
	}
}

func TestInferMoodExplicitTagWins(t *testing.T) {
	e := EventRecord{Mood: "Uplift", Description: "a quiet reflective walk"}
	if got := e.InferMood(); got != "Uplift" {
		t.Errorf("explicit tag not used: got %q", got)
	}
}

func TestInferMoodFirstRuleShortCircuits(t *testing.T) {
	// Description matches both reflect ("quiet") and connect ("together");
	// the reflect rule comes first and must win.
	e := EventRecord{Description: "A quiet evening together"}
	if got := e.InferMood(); got != MoodReflect {
		t.Errorf("expected %q, got %q", MoodReflect, got)
	}
}

func TestInferMoodOrderedRules(t *testing.T) {
	cases := []struct {
		desc string
		want string
	}{
		{"mindful journaling circle", MoodReflect},
		{"meet your neighbors block party", MoodConnect},
		{"celebrate spring with music", MoodUplift},
		{"weekly chess practice", ""},
	}
	for _, tc := range cases {
		e := EventRecord{Description: tc.desc}
		if got := e.InferMood(); got != tc.want {
			t.Errorf("InferMood(%q): got %q, want %q", tc.desc, got, tc.want)
		}
	}
}
