// Package assemble partitions a loaded corpus into simulated exams.
package assemble

import (
	"log/slog"
	"math/rand/v2"

	"github.com/m-mizutani/goerr/v2"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
)

// ErrTagAssembly marks assembly failures: a corpus too small to fill the
// requested number of exams, or an invalid policy.
var ErrTagAssembly = goerr.NewTag("assembly")

// Policy selects how the shuffled corpus is split across exams.
type Policy struct {
	// ExamCount is the number of simulados to produce.
	ExamCount int
	// QuestionsPerExam fixes the size of every exam. Zero means even
	// partition: the whole corpus is spread across ExamCount exams whose
	// sizes differ by at most one, so no question is left out.
	QuestionsPerExam int
}

// Plan is the output of Build: the assembled exams plus any questions a
// fixed-size policy could not place. Unassigned is always surfaced to the
// caller and the manifest; questions are never dropped silently.
type Plan struct {
	Exams      []model.Exam
	Unassigned []model.Question
}

// Build shuffles the corpus with rng and partitions it without replacement
// according to pol. The same rng seed over an unchanged corpus reproduces
// the plan exactly.
func Build(c *model.Corpus, pol Policy, rng *rand.Rand) (*Plan, error) {
	if pol.ExamCount <= 0 {
		return nil, goerr.New("exam count must be positive",
			goerr.V("count", pol.ExamCount), goerr.Tag(ErrTagAssembly))
	}
	if pol.QuestionsPerExam < 0 {
		return nil, goerr.New("questions per exam must not be negative",
			goerr.V("size", pol.QuestionsPerExam), goerr.Tag(ErrTagAssembly))
	}

	total := len(c.Questions)
	if total < pol.ExamCount {
		return nil, goerr.New("corpus too small: every exam must be non-empty",
			goerr.V("questions", total), goerr.V("exams", pol.ExamCount),
			goerr.Tag(ErrTagAssembly))
	}
	if pol.QuestionsPerExam > 0 && total < pol.ExamCount*pol.QuestionsPerExam {
		return nil, goerr.New("corpus too small for fixed-size exams",
			goerr.V("questions", total), goerr.V("exams", pol.ExamCount),
			goerr.V("per_exam", pol.QuestionsPerExam), goerr.Tag(ErrTagAssembly))
	}

	shuffled := make([]model.Question, total)
	copy(shuffled, c.Questions)
	rng.Shuffle(total, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	plan := &Plan{Exams: make([]model.Exam, 0, pol.ExamCount)}
	pos := 0
	for i := 0; i < pol.ExamCount; i++ {
		size := pol.QuestionsPerExam
		if size == 0 {
			size = total / pol.ExamCount
			if i < total%pol.ExamCount {
				size++
			}
		}
		plan.Exams = append(plan.Exams, model.Exam{
			Index:     i + 1,
			Questions: shuffled[pos : pos+size],
		})
		pos += size
	}
	plan.Unassigned = shuffled[pos:]

	if len(plan.Unassigned) > 0 {
		slog.Warn("fixed-size partition leaves questions unassigned",
			"unassigned", len(plan.Unassigned))
	}
	slog.Info("assembled exams",
		"exams", len(plan.Exams),
		"questions", total-len(plan.Unassigned),
		"unassigned", len(plan.Unassigned))
	return plan, nil
}
