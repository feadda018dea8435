package corpus

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/goerr/v2"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// writeQuestion lays out one question folder with a prompt and altCount
// alternative images.
func writeQuestion(t *testing.T, root, year, folder string, altCount int) {
	t.Helper()
	dir := filepath.Join(root, year, folder)
	writePNG(t, filepath.Join(dir, "question.png"), 400, 200)
	for i := 0; i < altCount; i++ {
		writePNG(t, filepath.Join(dir, string(rune('a'+i))+".png"), 200, 40)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2022", "q1", 5)
	writeQuestion(t, root, "2022", "q2", 5)
	writeQuestion(t, root, "2023-1", "q1", 5)
	// A page scan named after the folder must not count as an alternative.
	writePNG(t, filepath.Join(root, "2022", "q1", "q1.png"), 600, 800)

	c, err := Load(root, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(c.Questions))
	}

	q := c.Questions[0]
	if q.ID != "2022/q1" {
		t.Errorf("expected ID '2022/q1', got %q", q.ID)
	}
	if q.Year != "2022" || q.Folder != "q1" {
		t.Errorf("unexpected year/folder: %q/%q", q.Year, q.Folder)
	}
	if q.Prompt.WidthPx != 400 || q.Prompt.HeightPx != 200 {
		t.Errorf("unexpected prompt size: %dx%d", q.Prompt.WidthPx, q.Prompt.HeightPx)
	}
	if len(q.Alternatives) != 5 {
		t.Errorf("expected 5 alternatives, got %d", len(q.Alternatives))
	}

	years := c.Years()
	if len(years) != 2 || years[0] != "2022" || years[1] != "2023-1" {
		t.Errorf("unexpected years: %v", years)
	}
}

func TestLoadNumericFolderOrder(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2021", "q10", 5)
	writeQuestion(t, root, "2021", "q2", 5)
	writeQuestion(t, root, "2021", "q1", 5)

	c, err := Load(root, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := []string{"2021/q1", "2021/q2", "2021/q10"}
	for i, id := range want {
		if c.Questions[i].ID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, c.Questions[i].ID)
		}
	}
}

func TestLoadExcludeYears(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2023-2", "q1", 5)
	writeQuestion(t, root, "2024-1", "q1", 5)
	writeQuestion(t, root, "2024-2", "q1", 5)

	c, err := Load(root, Options{ExcludeYears: []string{"2024"}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(c.Questions))
	}
	if c.Questions[0].Year != "2023-2" {
		t.Errorf("expected only 2023-2, got %q", c.Questions[0].Year)
	}
}

func TestLoadMissingPrompt(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2022", "q1", 5)
	dir := filepath.Join(root, "2022", "q2")
	for i := 0; i < 5; i++ {
		writePNG(t, filepath.Join(dir, string(rune('a'+i))+".png"), 200, 40)
	}

	_, err := Load(root, Options{})
	if err == nil {
		t.Fatal("expected error for folder without question.png")
	}
	if !goerr.HasTag(err, ErrTagLoad) {
		t.Errorf("expected load tag on error, got %v", err)
	}

	// Lenient mode skips the incomplete folder instead.
	c, err := Load(root, Options{Lenient: true})
	if err != nil {
		t.Fatalf("Load lenient: %v", err)
	}
	if len(c.Questions) != 1 {
		t.Fatalf("expected 1 question after skip, got %d", len(c.Questions))
	}
}

func TestLoadWrongAlternativeCount(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2022", "q1", 4)

	_, err := Load(root, Options{})
	if err == nil {
		t.Fatal("expected error for 4 alternatives")
	}
	if !goerr.HasTag(err, ErrTagLoad) {
		t.Errorf("expected load tag on error, got %v", err)
	}

	// Lenient mode keeps the question with whatever it found.
	c, err := Load(root, Options{Lenient: true})
	if err != nil {
		t.Fatalf("Load lenient: %v", err)
	}
	if len(c.Questions) != 1 || len(c.Questions[0].Alternatives) != 4 {
		t.Fatalf("expected 1 question with 4 alternatives, got %+v", c.Questions)
	}
}

func TestLoadMalformedPNG(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2022", "q1", 5)
	writeQuestion(t, root, "2022", "q2", 5)
	bad := filepath.Join(root, "2022", "q1", "a.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write bad PNG: %v", err)
	}

	_, err := Load(root, Options{})
	if err == nil {
		t.Fatal("expected error for malformed PNG")
	}
	if !goerr.HasTag(err, ErrTagLoad) {
		t.Errorf("expected load tag on error, got %v", err)
	}

	// Lenient mode skips the folder with the bad image and keeps the rest.
	c, err := Load(root, Options{Lenient: true})
	if err != nil {
		t.Fatalf("Load lenient: %v", err)
	}
	if len(c.Questions) != 1 {
		t.Fatalf("expected 1 question after skip, got %d", len(c.Questions))
	}
	if c.Questions[0].ID != "2022/q2" {
		t.Errorf("expected surviving question 2022/q2, got %q", c.Questions[0].ID)
	}
}

func TestLoadEmptyCorpus(t *testing.T) {
	_, err := Load(t.TempDir(), Options{})
	if err == nil {
		t.Fatal("expected error for empty corpus")
	}
	if !goerr.HasTag(err, ErrTagLoad) {
		t.Errorf("expected load tag on error, got %v", err)
	}
}

func TestLoadMissingRoot(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), Options{})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if !goerr.HasTag(err, ErrTagLoad) {
		t.Errorf("expected load tag on error, got %v", err)
	}
}

func TestLoadYear(t *testing.T) {
	root := t.TempDir()
	writeQuestion(t, root, "2023-1", "q3", 5)
	writeQuestion(t, root, "2023-1", "q1", 5)
	writeQuestion(t, root, "2022", "q1", 5)

	c, err := LoadYear(root, "2023-1", Options{})
	if err != nil {
		t.Fatalf("LoadYear: %v", err)
	}
	if len(c.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(c.Questions))
	}
	if c.Questions[0].ID != "2023-1/q1" || c.Questions[1].ID != "2023-1/q3" {
		t.Errorf("unexpected order: %q, %q", c.Questions[0].ID, c.Questions[1].ID)
	}
}
