// Package expand widens free-text queries with a fixed synonym table before
// vectorization. Duplicate terms are kept on purpose: a synonym triggered by
// two phrases legitimately carries more weight in the query vector.
package expand

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultSynonyms maps canonical phrases to the terms appended when the
// phrase appears as a substring of the (lower-cased) query.
var defaultSynonyms = map[string][]string{
	"homeless":     {"shelter", "housing", "unsheltered", "outreach", "support"},
	"homelessness": {"shelter", "housing", "unsheltered", "outreach", "support"},
	"kids":         {"children", "youth", "tutoring", "mentoring", "education"},
	"teach":        {"tutoring", "mentoring", "education", "lessons"},
	"elderly":      {"seniors", "senior", "aging", "companionship", "eldercare"},
	"seniors":      {"elderly", "aging", "companionship"},
	"environment":  {"nature", "park", "cleanup", "recycling", "green"},
	"cleanup":      {"nature", "park", "litter", "trash", "volunteer"},
	"food":         {"hunger", "pantry", "meals", "nutrition", "kitchen"},
	"hunger":       {"food", "pantry", "meals", "kitchen"},
	"animals":      {"pets", "rescue", "adoption", "wildlife"},
	"art":          {"arts", "creative", "mural", "crafts", "music"},
	"garden":       {"gardening", "planting", "community garden", "green"},
	"lonely":       {"companionship", "connect", "community", "social"},
	"mental":       {"wellness", "support", "counseling", "mindful"},
}

// Expander expands queries against a synonym table.
type Expander struct {
	synonyms map[string][]string
	phrases  []string // canonical phrases in sorted order, for stable output
}

// New creates an expander over the built-in synonym table.
func New() *Expander {
	return newWithTable(defaultSynonyms)
}

// NewFromFile creates an expander from a YAML synonym file of the form
//
//	homeless: [shelter, housing]
//	kids: [children, youth]
//
// Entries merge over the built-in table; a file entry replaces the default
// for the same phrase.
func NewFromFile(path string) (*Expander, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("expand: read synonyms file: %w", err)
	}

	var custom map[string][]string
	if err := yaml.Unmarshal(data, &custom); err != nil {
		return nil, fmt.Errorf("expand: parse synonyms file %s: %w", path, err)
	}

	merged := make(map[string][]string, len(defaultSynonyms)+len(custom))
	for phrase, terms := range defaultSynonyms {
		merged[phrase] = terms
	}
	for phrase, terms := range custom {
		merged[strings.ToLower(phrase)] = terms
	}
	return newWithTable(merged), nil
}

func newWithTable(table map[string][]string) *Expander {
	phrases := make([]string, 0, len(table))
	for phrase := range table {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)
	return &Expander{synonyms: table, phrases: phrases}
}

// Expand lower-cases the query and appends the synonym list of every
// canonical phrase found as a substring. The result is the original query
// plus all triggered synonyms, space-joined. An empty query expands to "";
// the caller must treat that as "no query" and skip scoring entirely.
func (e *Expander) Expand(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return ""
	}

	terms := []string{query}
	for _, phrase := range e.phrases {
		if strings.Contains(query, phrase) {
			terms = append(terms, e.synonyms[phrase]...)
		}
	}
	return strings.Join(terms, " ")
}
