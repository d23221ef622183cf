package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// columnAliases maps normalized source header names to canonical RawRow keys.
// Upstream exports disagree on column naming (spreadsheet exports, enriched
// CSVs, hand-edited sheets), so headers are matched case-, space- and
// punctuation-insensitively.
var columnAliases = map[string]string{
	"title":       "title",
	"eventtitle":  "title",
	"name":        "title",
	"eventname":   "title",
	"description": "description",
	"details":     "description",
	"summary":     "description",

	"organization": "organization",
	"org":          "organization",
	"organizer":    "organization",

	"location":     "location",
	"address":      "location",
	"venue":        "location",
	"neighborhood": "location",

	"date":      "date",
	"eventdate": "date",
	"startdate": "date",

	"topicaltheme": "theme",
	"theme":        "theme",

	"activitytype": "activity",
	"activity":     "activity",

	"effortestimate": "effort",
	"effort":         "effort",
	"effortlevel":    "effort",

	"moodintent": "mood",
	"mood":       "mood",
	"vibe":       "mood",

	"weatherbadge": "weather",
	"weather":      "weather",

	"zip":      "postcode",
	"zipcode":  "postcode",
	"postcode": "postcode",
}

// FileSource loads rows from a CSV file with header normalization.
type FileSource struct {
	Path string
}

// Rows reads and parses the CSV file. The header must resolve both a title
// and a description column or the load fails.
func (f FileSource) Rows(ctx context.Context) ([]RawRow, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", f.Path, err)
	}

	// Map column index -> canonical key.
	keys := make([]string, len(header))
	seen := make(map[string]bool)
	for i, name := range header {
		if canonical, ok := columnAliases[normalizeHeader(name)]; ok && !seen[canonical] {
			keys[i] = canonical
			seen[canonical] = true
		}
	}
	if !seen["title"] || !seen["description"] {
		return nil, fmt.Errorf("%s: required columns title and description not found in header %v", f.Path, header)
	}

	var rows []RawRow
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}

		row := make(RawRow)
		for i, value := range record {
			if i < len(keys) && keys[i] != "" {
				row[keys[i]] = value
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// normalizeHeader lower-cases a header name and strips everything that is
// not a letter or digit, so "Topical Theme", "topical_theme" and
// "Topical-Theme" all resolve to the same key.
func normalizeHeader(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
