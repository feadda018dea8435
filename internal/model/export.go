package model

import "time"

// RunExport is the top-level JSON structure for a generation run manifest.
// It is written as manifest.json next to the PDFs and recorded in the run
// catalog, so any run can be audited or reproduced from its seed.
type RunExport struct {
	RunID         string         `json:"run_id"`
	Seed          uint64         `json:"seed"`
	GeneratedAt   time.Time      `json:"generated_at"`
	ExamsDir      string         `json:"exams_dir"`
	OutputDir     string         `json:"output_dir"`
	ExamCount     int            `json:"exam_count"`
	QuestionTotal int            `json:"question_total"`
	Exams         []ExamManifest `json:"exams"`
	// Unassigned lists question IDs left over by a fixed-size partition.
	// Always empty under the default even partition.
	Unassigned []string `json:"unassigned,omitempty"`
}

// ExamManifest holds one generated exam's composition for export.
type ExamManifest struct {
	Index     int      `json:"index"`
	Filename  string   `json:"filename"`
	Questions []string `json:"questions"`
}

// RunSummary is the one-line view of a run used by the runs listing.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Seed          uint64    `json:"seed"`
	GeneratedAt   time.Time `json:"generated_at"`
	ExamCount     int       `json:"exam_count"`
	QuestionTotal int       `json:"question_total"`
}
