// Package pipeline wires the stages together: crawl, extract, resolve,
// schedule, summarize, export, persist.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"comprehend/internal/assembler"
	"comprehend/internal/config"
	"comprehend/internal/crawler"
	"comprehend/internal/export"
	"comprehend/internal/extractor"
	"comprehend/internal/graph"
	"comprehend/internal/llm"
	"comprehend/internal/report"
	"comprehend/internal/resolver"
	"comprehend/internal/scheduler"
	"comprehend/internal/storage"
	"comprehend/internal/vectorstore"
)

type Options struct {
	InputDir  string
	Namespace string
	OutputDir string
	DBPath    string
}

// Result is everything a run produced.
type Result struct {
	Symbols   []*graph.Symbol
	Edges     []graph.Edge
	Schedule  *scheduler.Schedule
	Summaries []graph.Summary
	Report    *report.Report
	Annotated []string
}

type Pipeline struct {
	cfg    *config.Config
	logger *log.Logger
}

func New(cfg *config.Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes the full pipeline over one project directory.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.InputDir == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if opts.Namespace == "" {
		abs, err := filepath.Abs(opts.InputDir)
		if err != nil {
			return nil, err
		}
		opts.Namespace = filepath.Base(abs)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.DBPath == "" {
		opts.DBPath = "comprehend.db"
	}

	rep := report.New()
	p.logger.Printf("run %s: project=%s namespace=%s", rep.RunID, opts.InputDir, opts.Namespace)

	ext, err := extractor.New(p.cfg.Project.Language)
	if err != nil {
		return nil, err
	}

	cr, err := crawler.New(opts.InputDir, ext.Extensions())
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	files, err := cr.Crawl()
	if err != nil {
		return nil, fmt.Errorf("failed to crawl project: %w", err)
	}
	p.logger.Printf("found %d source files", len(files))

	table, containsEdges, err := p.extract(ctx, ext, files, rep)
	if err != nil {
		return nil, err
	}
	table.Freeze()
	p.logger.Printf("extracted %d symbols", table.Len())

	refEdges, stats, err := resolver.New(table).Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve references: %w", err)
	}
	p.logger.Printf("resolved %d/%d references (%d ambiguous, %d unresolved)",
		stats.Resolved, stats.Attempted, stats.Ambiguous, stats.Unresolved)
	recordResolutionIssues(rep, table, refEdges)

	edges := append(containsEdges, refEdges...)
	symbols := table.Symbols()

	sched := scheduler.Compute(symbols, edges)
	recordCycleWarning(rep, sched, p.cfg.Pipeline.CycleWarnThreshold)
	if len(sched.Cycles) > 0 {
		p.logger.Printf("schedule has %d dependency cycles (%.0f%% of symbols)",
			len(sched.Cycles), sched.CycleFraction*100)
	}

	store, db, err := p.openStore(ctx, opts.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	client, err := llm.NewClient(ctx, p.llmOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	embedder, err := llm.NewEmbedder(ctx, p.llmOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	asm := assembler.New(client, embedder, store, rep, assembler.Options{
		Namespace:     opts.Namespace,
		Workers:       p.cfg.Pipeline.Workers,
		MaxRetries:    p.cfg.Pipeline.MaxRetries,
		RelatedChunks: p.cfg.Pipeline.RelatedChunks,
	})
	summaries, err := asm.Run(ctx, sched, edges)
	if err != nil {
		return nil, fmt.Errorf("summarization aborted: %w", err)
	}
	p.logger.Printf("summarized %d symbols", len(summaries))

	res := &Result{
		Symbols:   symbols,
		Edges:     edges,
		Schedule:  sched,
		Summaries: summaries,
		Report:    rep,
	}

	if p.cfg.Pipeline.WriteComments {
		annotated, err := assembler.NewAnnotator(summaries).Annotate(symbols)
		if err != nil {
			return res, fmt.Errorf("failed to write annotated copies: %w", err)
		}
		res.Annotated = annotated
		p.logger.Printf("wrote %d annotated files", len(annotated))
	}

	if err := p.writeOutputs(opts, res); err != nil {
		return res, err
	}
	if err := db.SaveRun(ctx, symbols, edges, summaries); err != nil {
		return res, fmt.Errorf("failed to persist run: %w", err)
	}
	return res, nil
}

// extract parses files in parallel. Each worker parses without locks
// and a single mutex serializes table inserts.
func (p *Pipeline) extract(ctx context.Context, ext *extractor.Extractor, files []string, rep *report.Report) (*graph.SymbolTable, []graph.Edge, error) {
	table := graph.NewSymbolTable()
	var mu sync.Mutex
	var contains []graph.Edge

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.Workers)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr := ext.ExtractFromFile(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if fr.ParseFailed {
				rep.Add(report.ParseError, "", path, "file could not be parsed; contributing an error symbol only")
			}
			for _, sym := range fr.Symbols {
				if err := table.Add(sym); err != nil {
					return fmt.Errorf("failed to add %s: %w", sym.ID, err)
				}
			}
			contains = append(contains, fr.Edges...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return table, contains, nil
}

func (p *Pipeline) openStore(ctx context.Context, dbPath string) (vectorstore.Store, *storage.SQLiteStore, error) {
	db, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if p.cfg.VectorStore.Provider == "weaviate" {
		ws, err := vectorstore.NewWeaviateStore(ctx, p.cfg.VectorStore.URL, p.cfg.VectorStore.Index)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to weaviate: %w", err)
		}
		return ws, db, nil
	}
	return db, db, nil
}

func (p *Pipeline) llmOptions() llm.Options {
	return llm.Options{
		Provider:       p.cfg.AI.Provider,
		APIKey:         p.cfg.AI.APIKey,
		SummaryModel:   p.cfg.AI.SummaryModel,
		EmbeddingModel: p.cfg.AI.EmbeddingModel,
		BaseURL:        p.cfg.AI.BaseURL,
		Dimension:      p.cfg.AI.Dimension,
	}
}

func (p *Pipeline) writeOutputs(opts Options, res *Result) error {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}

	tg := export.Project(res.Symbols, res.Edges)

	graphPath := filepath.Join(opts.OutputDir, "graph.json")
	f, err := os.Create(graphPath)
	if err != nil {
		return err
	}
	if err := tg.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	f.Close()

	dotPath := filepath.Join(opts.OutputDir, "architecture.dot")
	f, err = os.Create(dotPath)
	if err != nil {
		return err
	}
	if err := tg.WriteDOT(f, opts.Namespace); err != nil {
		f.Close()
		return err
	}
	f.Close()

	reportPath := filepath.Join(opts.OutputDir, "report.json")
	f, err = os.Create(reportPath)
	if err != nil {
		return err
	}
	if err := res.Report.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	f.Close()

	p.logger.Printf("wrote %s, %s, %s", graphPath, dotPath, reportPath)
	return nil
}

// recordCycleWarning raises one warning when the share of symbols
// inside non-trivial cycles exceeds the configured threshold. The run
// continues either way; the schedule is always complete.
func recordCycleWarning(rep *report.Report, sched *scheduler.Schedule, threshold float64) {
	if len(sched.Cycles) == 0 || sched.CycleFraction <= threshold {
		return
	}
	rep.Add(report.CycleWarning, "", "",
		fmt.Sprintf("%d cycles cover %.0f%% of symbols (threshold %.0f%%)",
			len(sched.Cycles), sched.CycleFraction*100, threshold*100))
}

// recordResolutionIssues reports one issue per distinct (symbol,
// target name) pair so a reference that fanned out into several
// ambiguous edges shows up once.
func recordResolutionIssues(rep *report.Report, table *graph.SymbolTable, edges []graph.Edge) {
	type key struct {
		from, target string
		status       graph.EdgeStatus
	}
	seen := make(map[key]bool)
	for _, e := range edges {
		if e.Status == graph.StatusResolved {
			continue
		}
		k := key{e.From, e.TargetName, e.Status}
		if seen[k] {
			continue
		}
		seen[k] = true

		file := ""
		if sym, ok := table.Get(e.From); ok {
			file = sym.FilePath
		}
		switch e.Status {
		case graph.StatusAmbiguous:
			rep.Add(report.AmbiguousReference, e.From, file,
				fmt.Sprintf("reference %q matched multiple declarations; all candidates kept", e.TargetName))
		case graph.StatusUnresolved:
			rep.Add(report.UnresolvedReference, e.From, file,
				fmt.Sprintf("reference %q names nothing in the analyzed set", e.TargetName))
		}
	}
}
