// Package assembler turns the processing order into summaries. Each
// symbol is summarized with a context bundle holding its own code, the
// summaries of its already-processed dependencies, and semantically
// related chunks pulled from the vector store.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"comprehend/internal/graph"
	"comprehend/internal/llm"
	"comprehend/internal/report"
	"comprehend/internal/scheduler"
	"comprehend/internal/vectorstore"
)

type Options struct {
	Namespace     string
	Workers       int
	MaxRetries    int
	RelatedChunks int
}

type Assembler struct {
	client   llm.Client
	embedder llm.Embedder
	store    vectorstore.Store
	report   *report.Report
	opts     Options
}

func New(client llm.Client, embedder llm.Embedder, store vectorstore.Store, rep *report.Report, opts Options) *Assembler {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RelatedChunks < 0 {
		opts.RelatedChunks = 0
	}
	return &Assembler{client: client, embedder: embedder, store: store, report: rep, opts: opts}
}

// Bundle is the full context handed to the model for one symbol.
type Bundle struct {
	Symbol       *graph.Symbol
	Dependencies []llm.LabeledChunk
	Related      []llm.LabeledChunk
}

type slot struct {
	summary graph.Summary
	done    chan struct{}
}

// Run summarizes every summarizable symbol in schedule order. Workers
// are launched in that order and each waits only on dependencies that
// appear earlier in the schedule, so progress is always possible even
// when the graph had cycles.
func (a *Assembler) Run(ctx context.Context, sched *scheduler.Schedule, edges []graph.Edge) ([]graph.Summary, error) {
	position := sched.Position()
	deps := dependencyMap(edges)

	qualified := make(map[string]string, len(sched.Order))
	for _, sym := range sched.Order {
		qualified[sym.ID] = sym.QualifiedName
	}

	slots := make(map[string]*slot, len(sched.Order))
	for _, sym := range sched.Order {
		if !summarizable(sym) {
			continue
		}
		slots[sym.ID] = &slot{done: make(chan struct{})}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)

	for i, sym := range sched.Order {
		sym := sym
		ordinal := i
		sl, ok := slots[sym.ID]
		if !ok {
			continue
		}

		g.Go(func() error {
			defer close(sl.done)

			// Only dependencies scheduled before this symbol are
			// awaited. Back edges inside a cycle are dropped here,
			// which is what keeps the pool deadlock free.
			var waitFor []*slot
			var depIDs []string
			for _, depID := range deps[sym.ID] {
				if depID == sym.ID {
					continue
				}
				dsl, ok := slots[depID]
				if !ok || position[depID] >= position[sym.ID] {
					continue
				}
				waitFor = append(waitFor, dsl)
				depIDs = append(depIDs, depID)
			}

			for _, dsl := range waitFor {
				select {
				case <-dsl.done:
				case <-gctx.Done():
					sl.summary = placeholder(sym.ID, ordinal)
					return gctx.Err()
				}
			}

			bundle := Bundle{Symbol: sym}
			for _, depID := range depIDs {
				ds := slots[depID].summary
				if ds.Failed || ds.Text == "" {
					continue
				}
				bundle.Dependencies = append(bundle.Dependencies, llm.LabeledChunk{
					QualifiedName: qualified[depID],
					Text:          ds.Text,
				})
			}

			summary, err := a.summarize(gctx, sym, &bundle, depIDs)
			if err != nil {
				a.report.Add(report.SummarizationFailure, sym.ID, sym.FilePath, err.Error())
				sl.summary = placeholder(sym.ID, ordinal)
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}

			sl.summary = graph.Summary{SymbolID: sym.ID, Text: summary, Ordinal: ordinal}
			return nil
		})
	}

	err := g.Wait()

	summaries := make([]graph.Summary, 0, len(slots))
	for _, sym := range sched.Order {
		if sl, ok := slots[sym.ID]; ok {
			summaries = append(summaries, sl.summary)
		}
	}
	// Cancellation and deadline expiry are graceful stops: whatever
	// summaries were completed remain valid output.
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return summaries, err
	}
	return summaries, nil
}

func (a *Assembler) summarize(ctx context.Context, sym *graph.Symbol, bundle *Bundle, depIDs []string) (string, error) {
	vectors, err := a.embedder.Embed(ctx, []string{sym.Content})
	if err != nil {
		return "", fmt.Errorf("failed to embed %s: %w", sym.QualifiedName, err)
	}
	vector := vectors[0]

	if a.opts.RelatedChunks > 0 {
		bundle.Related = a.related(ctx, sym, vector, depIDs)
	}

	prompt := llm.SummaryPrompt(sym.QualifiedName, sym.FilePath, sym.Content, bundle.Dependencies, bundle.Related)

	var text string
	op := func() error {
		out, genErr := a.client.Generate(ctx, prompt)
		if genErr != nil {
			return genErr
		}
		text = out
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(a.opts.MaxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("failed to summarize %s: %w", sym.QualifiedName, err)
	}

	if err := a.store.Put(ctx, a.opts.Namespace, sym.ID, vector, vectorstore.Metadata{
		QualifiedName: sym.QualifiedName,
		Summary:       text,
		RawText:       sym.Content,
	}); err != nil {
		return "", fmt.Errorf("failed to index %s: %w", sym.QualifiedName, err)
	}
	return text, nil
}

// related queries the vector store and drops the symbol itself and its
// direct dependencies, which are already in the bundle.
func (a *Assembler) related(ctx context.Context, sym *graph.Symbol, vector []float32, depIDs []string) []llm.LabeledChunk {
	exclude := make(map[string]bool, len(depIDs)+1)
	exclude[sym.ID] = true
	for _, id := range depIDs {
		exclude[id] = true
	}

	matches, err := a.store.Query(ctx, a.opts.Namespace, vector, a.opts.RelatedChunks+len(exclude))
	if err != nil {
		// Related context is best effort. The bundle is still valid
		// without it.
		return nil
	}

	var related []llm.LabeledChunk
	for _, m := range matches {
		if exclude[m.Key] {
			continue
		}
		related = append(related, llm.LabeledChunk{
			QualifiedName: m.Metadata.QualifiedName,
			Text:          m.Metadata.Summary,
		})
		if len(related) == a.opts.RelatedChunks {
			break
		}
	}
	return related
}

func summarizable(sym *graph.Symbol) bool {
	return sym.Kind == graph.KindType || sym.Kind == graph.KindMethod
}

func placeholder(symbolID string, ordinal int) graph.Summary {
	return graph.Summary{SymbolID: symbolID, Text: "", Ordinal: ordinal, Failed: true}
}

// dependencyMap collapses resolved dependency edges into a sorted
// adjacency list. Ambiguous and unresolved edges stay out of the
// bundle entirely.
func dependencyMap(edges []graph.Edge) map[string][]string {
	seen := make(map[string]map[string]bool)
	for _, e := range edges {
		if e.Status != graph.StatusResolved || !graph.DependsKinds[e.Kind] {
			continue
		}
		if seen[e.From] == nil {
			seen[e.From] = make(map[string]bool)
		}
		seen[e.From][e.To] = true
	}

	deps := make(map[string][]string, len(seen))
	for from, tos := range seen {
		list := make([]string, 0, len(tos))
		for to := range tos {
			list = append(list, to)
		}
		sort.Strings(list)
		deps[from] = list
	}
	return deps
}
