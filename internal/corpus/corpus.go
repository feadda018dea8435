// Package corpus loads the scanned question bank from disk.
//
// Expected layout: <root>/<year>/<question>/ where each question folder
// contains question.png (the prompt) plus five alternative PNGs. Any PNG
// other than question.png and <folder>.png counts as an alternative.
package corpus

import (
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
)

// ErrTagLoad marks corpus load failures: unreadable directories, missing or
// malformed images, incomplete question folders.
var ErrTagLoad = goerr.NewTag("load")

const promptFilename = "question.png"

// Options controls corpus loading.
type Options struct {
	// ExcludeYears lists exam years to keep out of the pool. A year
	// directory is excluded when its numeric prefix (before any "-suffix",
	// e.g. "2024" in "2024-1") matches an entry.
	ExcludeYears []string
	// Lenient skips incomplete question folders with a warning instead of
	// failing the load.
	Lenient bool
}

// Load walks the exam directory tree and returns the full corpus in
// collated (numeric-aware) order. The corpus is never mutated after Load
// returns.
func Load(root string, opts Options) (*model.Corpus, error) {
	years, err := listDirs(root)
	if err != nil {
		return nil, err
	}

	c := &model.Corpus{Root: root}
	for _, year := range years {
		if excludedYear(year, opts.ExcludeYears) {
			slog.Info("excluding year from corpus", "year", year)
			continue
		}
		questions, err := loadYearDir(root, year, opts)
		if err != nil {
			return nil, err
		}
		c.Questions = append(c.Questions, questions...)
	}

	if len(c.Questions) == 0 {
		return nil, goerr.New("no questions found in corpus",
			goerr.V("path", root), goerr.Tag(ErrTagLoad))
	}
	slog.Info("corpus loaded", "questions", len(c.Questions), "years", c.Years())
	return c, nil
}

// LoadYear loads a single year directory in collated folder order, for the
// one-year booklet mode.
func LoadYear(root, year string, opts Options) (*model.Corpus, error) {
	questions, err := loadYearDir(root, year, opts)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, goerr.New("no questions found for year",
			goerr.V("path", filepath.Join(root, year)), goerr.Tag(ErrTagLoad))
	}
	return &model.Corpus{Root: root, Questions: questions}, nil
}

func loadYearDir(root, year string, opts Options) ([]model.Question, error) {
	folders, err := listDirs(filepath.Join(root, year))
	if err != nil {
		return nil, err
	}

	var questions []model.Question
	for _, folder := range folders {
		q, ok, err := loadQuestion(root, year, folder, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func loadQuestion(root, year, folder string, opts Options) (model.Question, bool, error) {
	dir := filepath.Join(root, year, folder)
	id := year + "/" + folder

	entries, err := os.ReadDir(dir)
	if err != nil {
		return model.Question{}, false, goerr.Wrap(err, "read question folder",
			goerr.V("path", dir), goerr.Tag(ErrTagLoad))
	}

	hasPrompt := false
	var altNames []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".png") {
			continue
		}
		switch name {
		case promptFilename:
			hasPrompt = true
		case folder + ".png":
			// The scan of the full original page, not an alternative.
		default:
			altNames = append(altNames, name)
		}
	}

	if !hasPrompt {
		if opts.Lenient {
			slog.Warn("skipping question folder without question.png", "path", dir)
			return model.Question{}, false, nil
		}
		return model.Question{}, false, goerr.New("question.png not found",
			goerr.V("path", dir), goerr.Tag(ErrTagLoad))
	}
	if len(altNames) != 5 {
		if !opts.Lenient {
			return model.Question{}, false, goerr.New("expected 5 alternative images",
				goerr.V("path", dir), goerr.V("found", len(altNames)), goerr.Tag(ErrTagLoad))
		}
		slog.Warn("unexpected alternative count", "path", dir, "found", len(altNames))
	}

	newCollator().SortStrings(altNames)

	prompt, err := readFigure(filepath.Join(dir, promptFilename))
	if err != nil {
		if opts.Lenient {
			slog.Warn("skipping question folder with unreadable image", "path", dir, "error", err)
			return model.Question{}, false, nil
		}
		return model.Question{}, false, err
	}
	alternatives := make([]model.Figure, 0, len(altNames))
	for _, name := range altNames {
		fig, err := readFigure(filepath.Join(dir, name))
		if err != nil {
			if opts.Lenient {
				slog.Warn("skipping question folder with unreadable image", "path", dir, "error", err)
				return model.Question{}, false, nil
			}
			return model.Question{}, false, err
		}
		alternatives = append(alternatives, fig)
	}

	return model.Question{
		ID:           id,
		Year:         year,
		Folder:       folder,
		Prompt:       prompt,
		Alternatives: alternatives,
	}, true, nil
}

// readFigure decodes just the PNG header, which validates the file and
// yields the pixel dimensions the renderer needs for layout.
func readFigure(path string) (model.Figure, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Figure{}, goerr.Wrap(err, "open image",
			goerr.V("path", path), goerr.Tag(ErrTagLoad))
	}
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return model.Figure{}, goerr.Wrap(err, "decode PNG header",
			goerr.V("path", path), goerr.Tag(ErrTagLoad))
	}
	return model.Figure{Path: path, WidthPx: cfg.Width, HeightPx: cfg.Height}, nil
}

// listDirs returns the subdirectory names of dir in collated order, so that
// q2 sorts before q10.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "read directory",
			goerr.V("path", dir), goerr.Tag(ErrTagLoad))
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	newCollator().SortStrings(names)
	return names, nil
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

func excludedYear(year string, exclude []string) bool {
	prefix, _, _ := strings.Cut(year, "-")
	for _, ex := range exclude {
		if year == ex || prefix == ex {
			return true
		}
	}
	return false
}
