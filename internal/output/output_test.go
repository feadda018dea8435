package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
)

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info, err := os.Stat(w.Dir())
	if err != nil || !info.IsDir() {
		t.Fatalf("output directory not created: %v", err)
	}
}

func TestWriteExam(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	name, err := w.WriteExam(3, func(out io.Writer) error {
		_, err := out.Write([]byte("%PDF-fake"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteExam: %v", err)
	}
	if name != "simulation_exam_3.pdf" {
		t.Errorf("expected stable filename, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(w.Dir(), name))
	if err != nil {
		t.Fatalf("read exam file: %v", err)
	}
	if string(data) != "%PDF-fake" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestWriteExamRenderFailure(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	renderErr := errors.New("boom")
	_, err = w.WriteExam(1, func(io.Writer) error { return renderErr })
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error to propagate, got %v", err)
	}

	// The partial file must not be left behind.
	if _, err := os.Stat(filepath.Join(w.Dir(), w.Filename(1))); !os.IsNotExist(err) {
		t.Errorf("expected partial file removed, stat err: %v", err)
	}
}

func TestWriteDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "all_questions.pdf")

	err := WriteDocument(path, func(out io.Writer) error {
		_, err := out.Write([]byte("%PDF-fake"))
		return err
	})
	if err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if string(data) != "%PDF-fake" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestWriteDocumentRenderFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all_questions.pdf")

	renderErr := errors.New("boom")
	err := WriteDocument(path, func(io.Writer) error { return renderErr })
	if !errors.Is(err, renderErr) {
		t.Fatalf("expected render error to propagate, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected partial file removed, stat err: %v", err)
	}
}

func TestWriteDocumentUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.pdf")

	err := WriteDocument(path, func(io.Writer) error { return nil })
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if !goerr.HasTag(err, ErrTagIO) {
		t.Errorf("expected io tag on error, got %v", err)
	}
}

func TestNewUnwritableDestination(t *testing.T) {
	// A file where the directory should go.
	base := t.TempDir()
	blocker := filepath.Join(base, "taken")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	_, err := New(filepath.Join(blocker, "out"))
	if err == nil {
		t.Fatal("expected error for unwritable destination")
	}
	if !goerr.HasTag(err, ErrTagIO) {
		t.Errorf("expected io tag on error, got %v", err)
	}
}

func TestWriteManifest(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	run := model.RunExport{
		RunID:         "run-1",
		Seed:          42,
		GeneratedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		ExamsDir:      "exams",
		OutputDir:     w.Dir(),
		ExamCount:     2,
		QuestionTotal: 5,
		Exams: []model.ExamManifest{
			{Index: 1, Filename: "simulation_exam_1.pdf", Questions: []string{"2022/q1", "2022/q2", "2022/q3"}},
			{Index: 2, Filename: "simulation_exam_2.pdf", Questions: []string{"2023-1/q1", "2023-1/q2"}},
		},
	}
	if err := w.WriteManifest(run); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(w.Dir(), "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got model.RunExport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.RunID != "run-1" || got.Seed != 42 {
		t.Errorf("unexpected manifest header: %+v", got)
	}
	if len(got.Exams) != 2 || len(got.Exams[0].Questions) != 3 {
		t.Errorf("unexpected manifest exams: %+v", got.Exams)
	}
}
