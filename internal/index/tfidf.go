// Package index builds a TF-IDF vector representation of the event corpus
// and scores expanded queries against it by cosine similarity.
//
// Determinism is part of the contract: the vectorization has no random
// initialization and all floating-point accumulation happens in sorted term
// order, so the same corpus and expanded query produce bit-for-bit identical
// scores across calls and process restarts.
package index

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/commonground/eventfinder/pkg/types"
)

// tokenRegex is compiled once at package initialization.
var tokenRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Scored pairs an event id with its cosine similarity to a query.
type Scored struct {
	EventID    string
	Similarity float64
}

// Index holds the pre-computed TF-IDF weights for one corpus build.
type Index struct {
	ids        []string
	docWeights []map[string]float64 // tf-idf weight per term, per document
	docNorms   []float64
	docFreq    map[string]int
	totalDocs  int
}

// Build computes TF-IDF vectors over every event's search text. An empty
// corpus produces a valid empty index.
func Build(records []types.EventRecord) *Index {
	ix := &Index{
		ids:        make([]string, len(records)),
		docWeights: make([]map[string]float64, len(records)),
		docNorms:   make([]float64, len(records)),
		docFreq:    make(map[string]int),
		totalDocs:  len(records),
	}

	tokenLists := make([][]string, len(records))
	for i, rec := range records {
		ix.ids[i] = rec.ID
		tokenLists[i] = tokenize(rec.SearchText)

		unique := make(map[string]bool)
		for _, tok := range tokenLists[i] {
			unique[tok] = true
		}
		for term := range unique {
			ix.docFreq[term]++
		}
	}

	for i, tokens := range tokenLists {
		tf := termFrequency(tokens)
		weights := make(map[string]float64, len(tf))
		for term, freq := range tf {
			weights[term] = freq * ix.idf(term)
		}
		ix.docWeights[i] = weights
		ix.docNorms[i] = vectorNorm(weights)
	}

	return ix
}

// Size returns the number of indexed events.
func (ix *Index) Size() int {
	return ix.totalDocs
}

// Score returns one (event id, similarity) pair per indexed event, in corpus
// order (unordered with respect to score). Similarity is cosine over
// non-negative TF-IDF weights, so it falls in [0,1]. Scoring an empty index
// returns an empty slice, not an error.
func (ix *Index) Score(expandedQuery string) []Scored {
	out := make([]Scored, ix.totalDocs)
	for i, id := range ix.ids {
		out[i] = Scored{EventID: id}
	}
	if ix.totalDocs == 0 {
		return out
	}

	queryTokens := tokenize(expandedQuery)
	if len(queryTokens) == 0 {
		return out
	}

	queryTF := termFrequency(queryTokens)
	queryWeights := make(map[string]float64, len(queryTF))
	for term, freq := range queryTF {
		queryWeights[term] = freq * ix.idf(term)
	}
	queryNorm := vectorNorm(queryWeights)
	if queryNorm == 0 {
		return out
	}

	queryTerms := sortedTerms(queryWeights)
	for i := range ix.ids {
		if ix.docNorms[i] == 0 {
			continue
		}
		var dot float64
		for _, term := range queryTerms {
			if dw, ok := ix.docWeights[i][term]; ok {
				dot += queryWeights[term] * dw
			}
		}
		out[i].Similarity = dot / (queryNorm * ix.docNorms[i])
	}

	return out
}

// idf is log(total_docs / docs_containing_term). Terms absent from the
// corpus score zero.
func (ix *Index) idf(term string) float64 {
	df := ix.docFreq[term]
	if df == 0 {
		return 0
	}
	return math.Log(float64(ix.totalDocs) / float64(df))
}

// tokenize breaks text into normalized tokens: lower-cased, split on
// non-alphanumeric characters, dropping very short words.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var filtered []string
	for _, token := range tokenRegex.Split(strings.ToLower(text), -1) {
		if len(token) >= 3 {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// termFrequency computes relative term frequency over a token list.
func termFrequency(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return map[string]float64{}
	}
	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	total := float64(len(tokens))
	freqs := make(map[string]float64, len(counts))
	for term, count := range counts {
		freqs[term] = float64(count) / total
	}
	return freqs
}

// vectorNorm accumulates in sorted term order for reproducible floats.
func vectorNorm(weights map[string]float64) float64 {
	var sum float64
	for _, term := range sortedTerms(weights) {
		w := weights[term]
		sum += w * w
	}
	return math.Sqrt(sum)
}

func sortedTerms(weights map[string]float64) []string {
	terms := make([]string, 0, len(weights))
	for term := range weights {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
