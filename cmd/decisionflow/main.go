// Command decisionflow runs the decision pipeline: one-shot questions from
// the command line, document ingestion into the context store, or the HTTP
// server with streaming.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/decisionflow/config"
	"github.com/smallnest/decisionflow/llm"
	"github.com/smallnest/decisionflow/log"
	"github.com/smallnest/decisionflow/memory"
	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/rag"
	"github.com/smallnest/decisionflow/report"
	"github.com/smallnest/decisionflow/server"
	"github.com/smallnest/decisionflow/store"
	storepostgres "github.com/smallnest/decisionflow/store/postgres"
	storeredis "github.com/smallnest/decisionflow/store/redis"
	storesqlite "github.com/smallnest/decisionflow/store/sqlite"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	phaseStyle   = lipgloss.NewStyle().Faint(true)
	yesStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	noStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	condStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func main() {
	question := flag.String("question", "", "run one decision question and print the result")
	serve := flag.Bool("serve", false, "start the HTTP server")
	ingest := flag.String("ingest", "", "comma-separated files to ingest into the context store")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := log.NewGologLogger(golog.Default)
	if *verbose {
		logger.SetLevel(log.LogLevelDebug)
	}

	cfg, err := config.Load()
	if err != nil {
		golog.Fatalf("configuration: %v", err)
	}

	app, cleanup, err := buildApp(cfg, logger)
	if err != nil {
		golog.Fatalf("startup: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *ingest != "":
		err = runIngest(ctx, app, *ingest)
	case *serve:
		err = runServe(ctx, app, cfg, logger)
	case *question != "":
		err = runQuestion(ctx, app, *question)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		golog.Fatalf("%v", err)
	}
}

// app bundles the wired collaborators.
type app struct {
	machine  *pipeline.Machine
	memory   *memory.Store
	threads  store.ThreadStore
	ingestor *rag.Ingestor
	reports  *report.Renderer
}

func buildApp(cfg *config.Config, logger log.Logger) (*app, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	client, err := openai.New(
		openai.WithToken(cfg.OpenAIKey),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	)
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating openai client: %w", err)
	}

	gen := llm.NewLangChain(client, llm.WithTimeout(cfg.LLMTimeout))

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating embedder: %w", err)
	}

	// Retrieval degrades gracefully: without a reachable Chroma server the
	// pipeline answers from general knowledge with reduced confidence.
	var (
		contexts  pipeline.ContextProvider
		retriever pipeline.Retriever
		ingestor  *rag.Ingestor
	)
	contextStore, err := rag.NewContextCollection(cfg.ChromaURL, cfg.ChromaNamespace, embedder)
	if err != nil {
		logger.Warn("context store unavailable, continuing without document context: %v", err)
	} else {
		contexts = rag.NewContextStore(contextStore, 4)
		ingestor = rag.NewIngestor(contextStore)
	}
	evidenceStore, err := rag.NewEvidenceCollection(cfg.ChromaURL, cfg.ChromaNamespace, embedder)
	if err != nil {
		logger.Warn("evidence store unavailable, continuing without historical retrieval: %v", err)
	} else {
		retriever = rag.NewEvidenceRetriever(evidenceStore)
	}

	memOpts := memory.Options{Path: cfg.MemoryDBPath}
	if idx, err := rag.NewChromaStore(cfg.ChromaURL, cfg.ChromaNamespace+"_decisions", embedder); err != nil {
		logger.Warn("decision index unavailable, similar-decision lookups disabled: %v", err)
	} else {
		memOpts.Index = idx
	}

	mem, err := memory.Open(memOpts)
	if err != nil {
		return nil, cleanup, fmt.Errorf("opening decision memory: %w", err)
	}
	cleanups = append(cleanups, func() { mem.Close() })

	threads, threadCleanup, err := buildThreadStore(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if threadCleanup != nil {
		cleanups = append(cleanups, threadCleanup)
	}

	machine, err := pipeline.New(pipeline.Config{
		Generator: gen,
		Retriever: retriever,
		Contexts:  contexts,
		Memory:    mem,
		Thresholds: pipeline.Thresholds{
			Low:         cfg.ConfidenceLow,
			High:        cfg.ConfidenceHigh,
			MaxAttempts: cfg.MaxAttempts,
		},
		Policy: pipeline.ConfidencePolicy{
			DefaultConfidence:   0.75,
			SimilarityThreshold: 0.75,
			SimilarityBonus:     0.10,
			NoContextPenalty:    cfg.NoContextPenalty,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, cleanup, err
	}

	return &app{
		machine:  machine,
		memory:   mem,
		threads:  threads,
		ingestor: ingestor,
		reports:  report.NewRenderer(nil),
	}, cleanup, nil
}

func buildThreadStore(cfg *config.Config) (store.ThreadStore, func(), error) {
	switch cfg.ThreadStore {
	case "sqlite":
		s, err := storesqlite.NewSqliteThreadStore(storesqlite.SqliteOptions{Path: cfg.ThreadDBPath})
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite thread store: %w", err)
		}
		return s, func() { s.Close() }, nil
	case "redis":
		s := storeredis.NewRedisThreadStore(storeredis.RedisOptions{Addr: cfg.RedisAddr})
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := storepostgres.NewPostgresThreadStore(context.Background(), storepostgres.PostgresOptions{
			ConnString: cfg.PostgresURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres thread store: %w", err)
		}
		if err := s.InitSchema(context.Background()); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewMemoryThreadStore(), nil, nil
	}
}

func runIngest(ctx context.Context, a *app, paths string) error {
	if a.ingestor == nil {
		return fmt.Errorf("context store unavailable, cannot ingest documents")
	}
	for _, path := range strings.Split(paths, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		n, err := a.ingestor.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("ingested %s (%d chunks)\n", path, n)
	}
	return nil
}

func runServe(ctx context.Context, a *app, cfg *config.Config, logger log.Logger) error {
	srv, err := server.New(server.Config{
		Runner:    a.machine,
		Decisions: a.memory,
		Threads:   a.threads,
		Reports:   a.reports,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", httpSrv.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// cliObserver prints phase transitions and streamed branch output.
type cliObserver struct{}

func (cliObserver) OnPhase(p pipeline.Phase) {
	fmt.Println(phaseStyle.Render("▸ " + p.String()))
}

func (cliObserver) OnToken(pipeline.Branch, string) {}

func (cliObserver) OnMessage(m pipeline.Message) {
	if m.Role == pipeline.RoleAssistant {
		fmt.Println(phaseStyle.Render("  " + firstLine(m.Content)))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runQuestion(ctx context.Context, a *app, question string) error {
	fmt.Println(titleStyle.Render("decisionflow"))
	fmt.Println()

	rec, err := a.machine.Run(ctx, question, pipeline.WithObserver(cliObserver{}))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(sectionStyle.Render("Decision"))
	fmt.Println(decisionStyle(rec.Decision).Render(string(rec.Decision)))
	fmt.Printf("Confidence: %.2f (attempts: %d)\n", rec.Confidence, rec.Attempts)
	if rec.ForcedTermination {
		fmt.Println(warnStyle.Render("Maximum attempts reached; decision accepted with low confidence."))
	}
	if rec.ContextFactors != "" {
		fmt.Println()
		fmt.Println(sectionStyle.Render("Contextual Factors"))
		fmt.Println(rec.ContextFactors)
	}
	return nil
}

func decisionStyle(d pipeline.Decision) lipgloss.Style {
	switch d {
	case pipeline.DecisionYes:
		return yesStyle
	case pipeline.DecisionNo:
		return noStyle
	default:
		return condStyle
	}
}
