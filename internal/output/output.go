// Package output writes rendered exams and the run manifest to disk.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
)

// ErrTagIO marks output write failures: unwritable destination directory or
// files.
var ErrTagIO = goerr.NewTag("io")

const manifestFilename = "manifest.json"

// Writer places run artifacts in a single output directory with stable
// names, one PDF per exam plus manifest.json.
type Writer struct {
	dir string
}

// New creates the output directory if absent and returns a Writer for it.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "create output directory",
			goerr.V("path", dir), goerr.Tag(ErrTagIO))
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Filename returns the stable name for the exam with the given index.
func (w *Writer) Filename(index int) string {
	return fmt.Sprintf("simulation_exam_%d.pdf", index)
}

// WriteExam creates the exam's file and streams the rendered document into
// it via render. Render errors propagate untouched; file errors are IO.
func (w *Writer) WriteExam(index int, render func(io.Writer) error) (string, error) {
	name := w.Filename(index)
	if err := WriteDocument(filepath.Join(w.dir, name), render); err != nil {
		return "", err
	}
	return name, nil
}

// WriteDocument creates path and streams a rendered document into it. On a
// render failure the partial file is removed, so no run leaves a truncated
// PDF behind.
func WriteDocument(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "create document file",
			goerr.V("path", path), goerr.Tag(ErrTagIO))
	}

	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "close document file",
			goerr.V("path", path), goerr.Tag(ErrTagIO))
	}
	return nil
}

// WriteManifest writes the run manifest as indented JSON next to the PDFs.
func (w *Writer) WriteManifest(run model.RunExport) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "marshal manifest", goerr.Tag(ErrTagIO))
	}
	data = append(data, '\n')

	path := filepath.Join(w.dir, manifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "write manifest",
			goerr.V("path", path), goerr.Tag(ErrTagIO))
	}
	return nil
}
