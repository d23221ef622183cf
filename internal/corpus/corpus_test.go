package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testRows() []RawRow {
	return []RawRow{
		{"title": "Park Cleanup", "description": "Join us to clean the park together", "theme": "Nature", "mood": "Uplift", "postcode": "10027"},
		{"title": "Tutoring Session", "description": "Help kids with homework", "theme": "Education", "mood": "Connect"},
		{"title": "Senior Companionship", "description": "Spend a quiet afternoon with elderly neighbors", "theme": "Elderly", "mood": "Reflect"},
	}
}

func TestBuildPreservesInputOrder(t *testing.T) {
	records := Build(testRows())
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	want := []string{"Park Cleanup", "Tutoring Session", "Senior Companionship"}
	for i, rec := range records {
		if rec.Title != want[i] {
			t.Errorf("records[%d]: got %q, want %q", i, rec.Title, want[i])
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build(testRows())
	b := Build(testRows())
	for i := range a {
		if a[i].ID != b[i].ID || a[i].SearchText != b[i].SearchText {
			t.Errorf("record %d differs across builds", i)
		}
	}
}

func TestBuildNormalizesNullSentinels(t *testing.T) {
	records := Build([]RawRow{
		{"title": "Event", "description": "desc", "location": "nan", "organization": "NULL", "weather": " n/a "},
	})
	rec := records[0]
	if rec.Location != "" || rec.Organization != "" || rec.Weather != "" {
		t.Errorf("null sentinels leaked: location=%q org=%q weather=%q",
			rec.Location, rec.Organization, rec.Weather)
	}
}

func TestBuildSkipsContentlessRows(t *testing.T) {
	records := Build([]RawRow{
		{"title": "", "description": ""},
		{"title": "Real Event", "description": "something"},
	})
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestBuildInfersMoodWhenTagMissing(t *testing.T) {
	records := Build([]RawRow{
		{"title": "Walk", "description": "a quiet stroll through the gardens"},
	})
	if records[0].Mood != "Reflect" {
		t.Errorf("mood: got %q, want Reflect", records[0].Mood)
	}
}

func TestDuplicateContentCollidesToSameID(t *testing.T) {
	records := Build([]RawRow{
		{"title": "Cleanup", "description": "same text"},
		{"title": "Cleanup", "description": "same text"},
	})
	if records[0].ID != records[1].ID {
		t.Error("identical title+description rows got different ids")
	}
}

func TestHandleLookup(t *testing.T) {
	h, err := NewHandle(context.Background(), StaticSource(testRows()))
	if err != nil {
		t.Fatalf("NewHandle() failed: %v", err)
	}

	id := h.Records()[1].ID
	rec, err := h.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if rec.Title != "Tutoring Session" {
		t.Errorf("got %q, want Tutoring Session", rec.Title)
	}

	if _, err := h.Lookup("evt:missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHandleIDStableAcrossRebuilds(t *testing.T) {
	h, err := NewHandle(context.Background(), StaticSource(testRows()))
	if err != nil {
		t.Fatalf("NewHandle() failed: %v", err)
	}
	before := h.Records()[0].ID

	if err := h.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if after := h.Records()[0].ID; after != before {
		t.Errorf("id changed across rebuild: %q -> %q", before, after)
	}
	if h.Version() != 2 {
		t.Errorf("version: got %d, want 2", h.Version())
	}
}

func TestHandleRebuildNotifies(t *testing.T) {
	h, err := NewHandle(context.Background(), StaticSource(testRows()))
	if err != nil {
		t.Fatalf("NewHandle() failed: %v", err)
	}

	notified := 0
	h.OnRebuild(func() { notified++ })
	if err := h.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if notified != 1 {
		t.Errorf("rebuild callbacks: got %d, want 1", notified)
	}
}

func TestHandleEmptySourceFailsLoud(t *testing.T) {
	_, err := NewHandle(context.Background(), StaticSource(nil))
	if !errors.Is(err, ErrLoad) {
		t.Errorf("empty source: expected ErrLoad, got %v", err)
	}
}

func TestFileSourceHeaderNormalization(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	csvBody := "Event Title,description,Topical Theme,Mood/Intent,ZIP Code\n" +
		"Park Cleanup,Clean the park,Nature,Uplift,10027\n"
	if err := os.WriteFile(path, []byte(csvBody), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := FileSource{Path: path}.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row["title"] != "Park Cleanup" || row["theme"] != "Nature" ||
		row["mood"] != "Uplift" || row["postcode"] != "10027" {
		t.Errorf("header aliases not resolved: %v", row)
	}
}

func TestFileSourceMissingRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("foo,bar\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (FileSource{Path: path}).Rows(context.Background()); err == nil {
		t.Error("missing title/description columns accepted")
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := NewHandle(context.Background(), FileSource{Path: "/does/not/exist.csv"})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("expected ErrLoad for missing file, got %v", err)
	}
}
