// Package render turns assembled exams into paginated A4 PDF documents.
package render

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/go-pdf/fpdf"
	"github.com/m-mizutani/goerr/v2"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/i18n"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
)

// ErrTagRender marks rendering failures, typically an image that became
// unreadable between corpus load and PDF embedding.
var ErrTagRender = goerr.NewTag("render")

const (
	dpi        = 96
	mmPerPixel = 25.4 / dpi

	// Auto page break margin at the bottom of each A4 page.
	pageBreakMargin = 15
	titleHeight     = 10
)

// Layout holds the geometry of one question block, in millimeters unless
// noted. Question images are always scaled to the full content width;
// alternatives keep their scanned size times AltScale.
type Layout struct {
	AltScale         float64
	LetterCellWidth  float64
	LetterCellMargin float64
	VerticalGap      float64
	LabelHeight      float64
	GapAfterQuestion float64
	AltBottomGap     float64
	// AltIndent shifts the alternative block right of the left margin.
	AltIndent float64
	// ShowLabels prints the question's year/folder label above its image.
	ShowLabels bool
	// TitleID is the i18n message ID of the heading on the first page.
	TitleID string
}

// SimulationLayout is the geometry of a generated simulado.
func SimulationLayout() Layout {
	return Layout{
		AltScale:         0.75,
		LetterCellWidth:  4,
		LetterCellMargin: 2,
		VerticalGap:      2,
		LabelHeight:      7,
		GapAfterQuestion: 5,
		AltBottomGap:     10,
		ShowLabels:       true,
		TitleID:          "pdf.exam_title",
	}
}

// BookletLayout is the denser geometry of the single-year booklet: smaller
// alternatives, indented letters, no per-question labels.
func BookletLayout() Layout {
	return Layout{
		AltScale:         0.5,
		LetterCellWidth:  4,
		LetterCellMargin: 2,
		VerticalGap:      2,
		GapAfterQuestion: 5,
		AltBottomGap:     10,
		AltIndent:        5,
		TitleID:          "pdf.booklet_title",
	}
}

// Renderer renders exams with a fixed layout. The rng drives the
// per-question alternative shuffle, so a seeded run is fully reproducible.
type Renderer struct {
	layout Layout
	rng    *rand.Rand
}

func New(layout Layout, rng *rand.Rand) *Renderer {
	return &Renderer{layout: layout, rng: rng}
}

// Render writes exam as a PDF document to w. Each question block is kept on
// a single page: its full height is computed up front and a page break
// inserted when the remaining space cannot hold it.
func (r *Renderer) Render(ctx context.Context, exam model.Exam, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(i18n.T(ctx, "pdf.doc_title"), true)
	pdf.SetAutoPageBreak(true, pageBreakMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if r.layout.TitleID != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, titleHeight, tr(i18n.Td(ctx, r.layout.TitleID, titleData(exam))),
			"", 1, "C", false, 0, "")
		pdf.Ln(r.layout.GapAfterQuestion)
	}

	for _, q := range exam.Questions {
		if err := r.drawQuestion(pdf, q); err != nil {
			return err
		}
	}

	if err := pdf.Output(w); err != nil {
		return goerr.Wrap(err, "write PDF document",
			goerr.V("exam", exam.Index), goerr.Tag(ErrTagRender))
	}
	return nil
}

func (r *Renderer) drawQuestion(pdf *fpdf.Fpdf, q model.Question) error {
	left, _, right, bottom := pdf.GetMargins()
	pageW, pageH := pdf.GetPageSize()
	avail := pageW - left - right

	// The question image is scaled to the full content width.
	dispH := avail * float64(q.Prompt.HeightPx) / float64(q.Prompt.WidthPx)

	altTotal := 0.0
	for _, alt := range q.Alternatives {
		altTotal += float64(alt.HeightPx) * mmPerPixel * r.layout.AltScale
	}
	required := dispH + r.layout.GapAfterQuestion +
		altTotal + float64(len(q.Alternatives))*r.layout.VerticalGap +
		r.layout.AltBottomGap
	if r.layout.ShowLabels {
		required += r.layout.LabelHeight
	}
	if pdf.GetY()+required > pageH-bottom {
		pdf.AddPage()
	}

	pdf.SetFont("Arial", "", 12)
	if r.layout.ShowLabels {
		pdf.CellFormat(0, r.layout.LabelHeight, q.ID, "", 1, "", false, 0, "")
	}

	y := pdf.GetY()
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.ImageOptions(q.Prompt.Path, left, y, avail, dispH, false, opts, 0, "")
	pdf.SetY(y + dispH + r.layout.GapAfterQuestion)

	alts := make([]model.Figure, len(q.Alternatives))
	copy(alts, q.Alternatives)
	r.rng.Shuffle(len(alts), func(i, j int) {
		alts[i], alts[j] = alts[j], alts[i]
	})

	letterX := left + r.layout.AltIndent
	imageX := letterX + r.layout.LetterCellWidth + r.layout.LetterCellMargin
	maxAltW := avail - (imageX - left)

	y = pdf.GetY()
	for i, alt := range alts {
		altW := float64(alt.WidthPx) * mmPerPixel * r.layout.AltScale
		altH := float64(alt.HeightPx) * mmPerPixel * r.layout.AltScale
		if altW > maxAltW {
			factor := maxAltW / altW
			altW *= factor
			altH *= factor
		}
		pdf.Text(letterX, y+altH/2, letter(i))
		pdf.ImageOptions(alt.Path, imageX, y, altW, altH, false, opts, 0, "")
		y += altH + r.layout.VerticalGap
	}
	pdf.SetY(y + r.layout.AltBottomGap)

	if pdf.Err() {
		return goerr.Wrap(pdf.Error(), "render question block",
			goerr.V("question", q.ID), goerr.Tag(ErrTagRender))
	}
	return nil
}

func titleData(exam model.Exam) map[string]any {
	data := map[string]any{"Index": exam.Index}
	if len(exam.Questions) > 0 {
		data["Year"] = exam.Questions[0].Year
	}
	return data
}

func letter(i int) string {
	return fmt.Sprintf("%c)", 'a'+i)
}
