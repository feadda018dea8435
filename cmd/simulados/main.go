package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/assemble"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/corpus"
	appI18n "github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/i18n"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/model"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/output"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/render"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/server"
	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simulados",
		Short: "Generate EUF physics practice exams from past exam scans",
	}

	generate := generateCmd()
	root.AddCommand(generate, bookletCmd(), runsCmd(), exportCmd(), serveCmd())

	// Make "generate" the default when no subcommand is given.
	root.RunE = generate.RunE

	// Register generate flags on root so bare `simulados --seed ...` still works.
	root.Flags().AddFlagSet(generate.Flags())

	return root
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Assemble practice exams and render them as PDFs",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("exams-dir", "e", "exams", "Directory holding the scanned question bank")
	f.StringP("output", "o", "simulations", "Output directory for generated PDFs")
	f.String("db", "simulados.db", "Run catalog SQLite database path (empty disables)")
	f.IntP("count", "c", 10, "Number of practice exams to generate")
	f.IntP("questions-per-exam", "n", 0, "Fixed questions per exam (0 = spread the whole corpus evenly)")
	f.Uint64P("seed", "s", 0, "Random seed for reproducible runs (0 = derive from clock)")
	f.StringSlice("exclude-years", []string{"2024"}, "Exam years to keep out of the question pool")
	f.Bool("lenient", false, "Skip incomplete question folders instead of failing")
	f.StringP("lang", "l", "pt", "Document language (pt, en)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func bookletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booklet",
		Short: "Render every question of one exam year into a single PDF",
		RunE:  runBooklet,
	}
	f := cmd.Flags()
	f.StringP("exams-dir", "e", "exams", "Directory holding the scanned question bank")
	f.StringP("year", "y", "", "Exam year directory to render (required, e.g. 2023-1)")
	f.StringP("output", "o", "all_questions.pdf", "Output PDF file path")
	f.Uint64P("seed", "s", 0, "Random seed for the alternative shuffle (0 = derive from clock)")
	f.Bool("lenient", false, "Skip incomplete question folders instead of failing")
	f.StringP("lang", "l", "pt", "Document language (pt, en)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded generation runs",
		RunE:  runRuns,
	}
	f := cmd.Flags()
	f.String("db", "simulados.db", "Run catalog SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one run's manifest as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "simulados.db", "Run catalog SQLite database path")
	f.String("run-id", "", "Run identifier to export (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run catalog and generated PDFs over HTTP",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "simulados.db", "Run catalog SQLite database path")
	f.StringP("output", "o", "simulations", "Directory with generated PDFs to serve")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SIMULADOS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("simulados")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/simulados")
	v.AddConfigPath("/etc/simulados")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	slog.Info("generation seed", "seed", seed)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	c, err := corpus.Load(v.GetString("exams-dir"), corpus.Options{
		ExcludeYears: v.GetStringSlice("exclude-years"),
		Lenient:      v.GetBool("lenient"),
	})
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	plan, err := assemble.Build(c, assemble.Policy{
		ExamCount:        v.GetInt("count"),
		QuestionsPerExam: v.GetInt("questions-per-exam"),
	}, rng)
	if err != nil {
		return fmt.Errorf("assemble exams: %w", err)
	}

	out, err := output.New(v.GetString("output"))
	if err != nil {
		return fmt.Errorf("prepare output: %w", err)
	}

	renderer := render.New(render.SimulationLayout(), rng)

	run := model.RunExport{
		RunID:         uuid.NewString(),
		Seed:          seed,
		GeneratedAt:   time.Now().UTC(),
		ExamsDir:      v.GetString("exams-dir"),
		OutputDir:     out.Dir(),
		ExamCount:     len(plan.Exams),
		QuestionTotal: len(c.Questions),
	}
	for _, q := range plan.Unassigned {
		run.Unassigned = append(run.Unassigned, q.ID)
	}

	for _, exam := range plan.Exams {
		name, err := out.WriteExam(exam.Index, func(w io.Writer) error {
			return renderer.Render(ctx, exam, w)
		})
		if err != nil {
			return fmt.Errorf("write exam %d: %w", exam.Index, err)
		}
		manifest := model.ExamManifest{Index: exam.Index, Filename: name}
		for _, q := range exam.Questions {
			manifest.Questions = append(manifest.Questions, q.ID)
		}
		run.Exams = append(run.Exams, manifest)
		slog.Info("created exam", "file", name, "questions", len(exam.Questions))
	}

	if err := out.WriteManifest(run); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if dbPath := v.GetString("db"); dbPath != "" {
		db, err := store.New(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.RecordRun(run); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}

	slog.Info("generation complete",
		"run_id", run.RunID,
		"exams", len(run.Exams),
		"unassigned", len(run.Unassigned),
		"output", out.Dir(),
	)
	return nil
}

func runBooklet(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	slog.Info("booklet seed", "seed", seed)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(cmd.Context(), appI18n.NewLocalizer(lang))

	year := v.GetString("year")
	c, err := corpus.LoadYear(v.GetString("exams-dir"), year, corpus.Options{
		Lenient: v.GetBool("lenient"),
	})
	if err != nil {
		return fmt.Errorf("load year %s: %w", year, err)
	}

	// The booklet keeps the on-disk question order; only the alternatives
	// are shuffled during rendering.
	exam := model.Exam{Index: 1, Questions: c.Questions}
	renderer := render.New(render.BookletLayout(), rng)

	outPath := v.GetString("output")
	err = output.WriteDocument(outPath, func(w io.Writer) error {
		return renderer.Render(ctx, exam, w)
	})
	if err != nil {
		return fmt.Errorf("write booklet: %w", err)
	}

	slog.Info("booklet created", "file", outPath, "questions", len(c.Questions))
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	count, err := db.RunCount()
	if err != nil {
		return fmt.Errorf("count runs: %w", err)
	}
	if count == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  seed=%d  exams=%d  questions=%d\n",
			r.RunID, r.GeneratedAt.Format(time.RFC3339), r.Seed, r.ExamCount, r.QuestionTotal)
	}
	fmt.Printf("%d run(s) recorded\n", count)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runID := v.GetString("run-id")
	run, err := db.GetRun(runID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, v.GetString("output"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	srv.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "output", v.GetString("output"))
	return http.ListenAndServe(addr, r)
}
