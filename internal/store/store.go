// Package store keeps the run catalog: which questions went into which
// generated simulado, under which seed. It makes past runs listable,
// exportable, and reproducible.
package store

import (
	"database/sql"
	"fmt"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		generated_at DATETIME NOT NULL,
		exams_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		exam_count INTEGER NOT NULL,
		question_total INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_exams (
		run_id TEXT NOT NULL,
		exam_index INTEGER NOT NULL,
		filename TEXT NOT NULL,
		PRIMARY KEY (run_id, exam_index),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS run_questions (
		run_id TEXT NOT NULL,
		exam_index INTEGER NOT NULL,
		position INTEGER NOT NULL,
		question_id TEXT NOT NULL,
		PRIMARY KEY (run_id, exam_index, position),
		FOREIGN KEY (run_id, exam_index) REFERENCES run_exams(run_id, exam_index)
	);

	CREATE TABLE IF NOT EXISTS run_unassigned (
		run_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		PRIMARY KEY (run_id, question_id),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a complete run manifest in one transaction.
func (s *Store) RecordRun(run model.RunExport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, seed, generated_at, exams_dir, output_dir, exam_count, question_total)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, int64(run.Seed), run.GeneratedAt, run.ExamsDir, run.OutputDir,
		run.ExamCount, run.QuestionTotal,
	)
	if err != nil {
		return err
	}

	for _, exam := range run.Exams {
		_, err = tx.Exec(
			`INSERT INTO run_exams (run_id, exam_index, filename) VALUES (?, ?, ?)`,
			run.RunID, exam.Index, exam.Filename,
		)
		if err != nil {
			return err
		}
		for pos, qid := range exam.Questions {
			_, err = tx.Exec(
				`INSERT INTO run_questions (run_id, exam_index, position, question_id)
				 VALUES (?, ?, ?, ?)`,
				run.RunID, exam.Index, pos, qid,
			)
			if err != nil {
				return err
			}
		}
	}

	for _, qid := range run.Unassigned {
		_, err = tx.Exec(
			`INSERT INTO run_unassigned (run_id, question_id) VALUES (?, ?)`,
			run.RunID, qid,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns all recorded runs, newest first.
func (s *Store) ListRuns() ([]model.RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, seed, generated_at, exam_count, question_total
		 FROM runs ORDER BY generated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var r model.RunSummary
		var seed int64
		if err := rows.Scan(&r.RunID, &seed, &r.GeneratedAt, &r.ExamCount, &r.QuestionTotal); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun reconstructs a full run manifest. Returns sql.ErrNoRows when the
// run is unknown.
func (s *Store) GetRun(runID string) (model.RunExport, error) {
	var run model.RunExport
	var seed int64
	err := s.db.QueryRow(
		`SELECT id, seed, generated_at, exams_dir, output_dir, exam_count, question_total
		 FROM runs WHERE id = ?`, runID).
		Scan(&run.RunID, &seed, &run.GeneratedAt, &run.ExamsDir, &run.OutputDir,
			&run.ExamCount, &run.QuestionTotal)
	if err != nil {
		return model.RunExport{}, err
	}
	run.Seed = uint64(seed)

	examRows, err := s.db.Query(
		`SELECT exam_index, filename FROM run_exams WHERE run_id = ? ORDER BY exam_index`, runID)
	if err != nil {
		return model.RunExport{}, err
	}
	defer examRows.Close()
	for examRows.Next() {
		var exam model.ExamManifest
		if err := examRows.Scan(&exam.Index, &exam.Filename); err != nil {
			return model.RunExport{}, err
		}
		run.Exams = append(run.Exams, exam)
	}
	if err := examRows.Err(); err != nil {
		return model.RunExport{}, err
	}

	for i := range run.Exams {
		qRows, err := s.db.Query(
			`SELECT question_id FROM run_questions
			 WHERE run_id = ? AND exam_index = ? ORDER BY position`,
			runID, run.Exams[i].Index)
		if err != nil {
			return model.RunExport{}, err
		}
		for qRows.Next() {
			var qid string
			if err := qRows.Scan(&qid); err != nil {
				qRows.Close()
				return model.RunExport{}, err
			}
			run.Exams[i].Questions = append(run.Exams[i].Questions, qid)
		}
		if err := qRows.Err(); err != nil {
			qRows.Close()
			return model.RunExport{}, err
		}
		qRows.Close()
	}

	uRows, err := s.db.Query(
		`SELECT question_id FROM run_unassigned WHERE run_id = ? ORDER BY question_id`, runID)
	if err != nil {
		return model.RunExport{}, err
	}
	defer uRows.Close()
	for uRows.Next() {
		var qid string
		if err := uRows.Scan(&qid); err != nil {
			return model.RunExport{}, err
		}
		run.Unassigned = append(run.Unassigned, qid)
	}
	return run, uRows.Err()
}

// RunCount returns the number of recorded runs.
func (s *Store) RunCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}
