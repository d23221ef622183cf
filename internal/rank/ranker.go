// Package rank applies hard filters and soft scoring adjustments to scored
// events and produces a deterministic top-K ordering.
package rank

import (
	"sort"
	"strings"

	"github.com/commonground/eventfinder/internal/index"
	"github.com/commonground/eventfinder/pkg/types"
)

// FilterBonus is added to an event's relevance for each filter dimension it
// satisfies. The bonus applies whenever the condition holds, even when that
// dimension was also used as a hard filter, a deliberate no-op in that case,
// but callers may read rank order before filtering is applied.
const FilterBonus = 0.1

// staleYears excludes events whose date string references a year that can no
// longer be current programming.
var staleYears = []string{"2020", "2021", "2022"}

// noPreference values for the mood filter that mean "no filter".
var noPreference = map[string]bool{
	"": true, "any": true, "(no preference)": true, "no preference": true,
}

// Filters are the optional, independently composable hard constraints.
// All present filters are AND-combined.
type Filters struct {
	// Mood keeps events whose mood tag or description contains the value,
	// case-insensitively. Loose by design: mood tags are sparse.
	Mood string

	// ZIPPrefix keeps events whose postcode starts with the value, so a
	// 5-digit ZIP also matches ZIP+4 variants.
	ZIPPrefix string

	// Weather keeps events whose weather tag contains the value.
	Weather string

	// ExcludeStale drops events whose date mentions a stale year.
	ExcludeStale bool
}

// Result is a ranked event with its adjusted relevance score.
type Result struct {
	Event     types.EventRecord
	Relevance float64
}

// Rank filters and orders events. scores carries one similarity per corpus
// event; events not present in scores rank with zero base similarity. Ties
// keep input order (stable sort) so fixtures reproduce exactly. If topK
// exceeds the surviving count, all survivors are returned.
func Rank(events []types.EventRecord, scores []index.Scored, filters Filters, topK int) []Result {
	similarity := make(map[string]float64, len(scores))
	for _, s := range scores {
		similarity[s.EventID] = s.Similarity
	}

	var results []Result
	for _, event := range events {
		if !passes(event, filters) {
			continue
		}
		score := similarity[event.ID]
		score += bonuses(event, filters)
		results = append(results, Result{Event: event, Relevance: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

// passes applies the AND-combined hard filters.
func passes(event types.EventRecord, f Filters) bool {
	if !noPreference[strings.ToLower(strings.TrimSpace(f.Mood))] && !matchesMood(event, f.Mood) {
		return false
	}
	if f.ZIPPrefix != "" && !strings.HasPrefix(event.Postcode, f.ZIPPrefix) {
		return false
	}
	if f.Weather != "" && !containsFold(event.Weather, f.Weather) {
		return false
	}
	if f.ExcludeStale && isStale(event.Date) {
		return false
	}
	return true
}

// bonuses rewards each dimension the event independently satisfies.
func bonuses(event types.EventRecord, f Filters) float64 {
	var bonus float64
	if !noPreference[strings.ToLower(strings.TrimSpace(f.Mood))] && matchesMood(event, f.Mood) {
		bonus += FilterBonus
	}
	if f.ZIPPrefix != "" && strings.HasPrefix(event.Postcode, f.ZIPPrefix) {
		bonus += FilterBonus
	}
	if f.Weather != "" && containsFold(event.Weather, f.Weather) {
		bonus += FilterBonus
	}
	return bonus
}

// matchesMood is a loose substring match over the mood tag or, failing that,
// the description; exact tag equality would lose events with sparse tags.
func matchesMood(event types.EventRecord, mood string) bool {
	return containsFold(event.Mood, mood) || containsFold(event.Description, mood)
}

func isStale(date string) bool {
	for _, year := range staleYears {
		if strings.Contains(date, year) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
