// Package resolver turns the raw reference tokens collected during
// extraction into typed, directed edges against the symbol table. It
// runs as a second pass once the table is frozen, so resolution is
// pure lookup with no forward-declaration patching.
package resolver

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"comprehend/internal/graph"
)

// Stats summarizes one resolution pass.
type Stats struct {
	Attempted  int
	Resolved   int
	Ambiguous  int
	Unresolved int
}

// Resolver resolves symbol references with a fixed precedence: exact
// match in the same file, then the same package, then any global
// match. When several equally-ranked candidates remain it emits one
// ambiguous-tagged edge per candidate instead of guessing; when none
// exist it emits an unresolved edge keeping the literal name.
type Resolver struct {
	table *graph.SymbolTable
}

// New creates a resolver over a frozen symbol table.
func New(table *graph.SymbolTable) *Resolver {
	return &Resolver{table: table}
}

// Resolve processes every symbol and returns the combined edge set.
// Symbols are processed in parallel; each goroutine writes only its own
// slot, so no cross-symbol locking is needed. The output is
// deterministic for a given table: identical input produces an
// identical edge set regardless of run count or concurrency.
func (r *Resolver) Resolve(ctx context.Context) ([]graph.Edge, Stats, error) {
	symbols := r.table.Symbols()
	perSymbol := make([][]graph.Edge, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perSymbol[i] = r.resolveSymbol(sym)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	var edges []graph.Edge
	for _, batch := range perSymbol {
		for _, e := range batch {
			stats.Attempted++
			switch e.Status {
			case graph.StatusResolved:
				stats.Resolved++
			case graph.StatusAmbiguous:
				stats.Ambiguous++
			case graph.StatusUnresolved:
				stats.Unresolved++
			}
		}
		edges = append(edges, batch...)
	}
	return edges, stats, nil
}

func (r *Resolver) resolveSymbol(sym *graph.Symbol) []graph.Edge {
	var edges []graph.Edge
	for _, ref := range sym.Refs {
		edges = append(edges, r.resolveRef(sym, ref)...)
	}
	return edges
}

func (r *Resolver) resolveRef(sym *graph.Symbol, ref graph.Ref) []graph.Edge {
	kind := edgeKind(ref.Kind)

	candidates := r.candidates(sym, ref)
	if len(candidates) == 0 {
		// Normal for references into code outside the analyzed set
		// (platform and third-party libraries).
		return []graph.Edge{{
			From:       sym.ID,
			Kind:       kind,
			Status:     graph.StatusUnresolved,
			TargetName: ref.Name,
		}}
	}

	status := graph.StatusResolved
	if len(candidates) > 1 {
		status = graph.StatusAmbiguous
	}

	edges := make([]graph.Edge, 0, len(candidates))
	for _, cand := range candidates {
		edges = append(edges, graph.Edge{
			From:       sym.ID,
			To:         cand.ID,
			Kind:       kind,
			Status:     status,
			TargetName: ref.Name,
		})
	}
	return edges
}

// candidates returns the best-ranked candidate set for a reference:
// same file beats same package beats global. Ties within a rank are
// all kept (tagged ambiguous by the caller) and sorted by ID so the
// edge set is stable.
func (r *Resolver) candidates(sym *graph.Symbol, ref graph.Ref) []*graph.Symbol {
	all := r.table.Lookup(ref.Name)
	if len(all) == 0 {
		return nil
	}

	want := targetKind(ref.Kind)
	bestRank := 3
	var best []*graph.Symbol
	for _, cand := range all {
		if cand.ID == sym.ID {
			// A declaration never depends on itself.
			continue
		}
		if want != "" && cand.Kind != want {
			continue
		}
		rank := 2
		if cand.FilePath == sym.FilePath {
			rank = 0
		} else if cand.Package != "" && cand.Package == sym.Package {
			rank = 1
		}
		if rank < bestRank {
			bestRank = rank
			best = best[:0]
		}
		if rank == bestRank {
			best = append(best, cand)
		}
	}

	sort.Slice(best, func(i, j int) bool { return best[i].ID < best[j].ID })
	return best
}

func edgeKind(k graph.RefKind) graph.EdgeKind {
	switch k {
	case graph.RefExtends:
		return graph.EdgeExtends
	case graph.RefImplements:
		return graph.EdgeImplements
	case graph.RefInvokes:
		return graph.EdgeInvokes
	case graph.RefImports:
		return graph.EdgeImports
	default:
		return graph.EdgeRefType
	}
}

// targetKind restricts candidates to the symbol kind a reference can
// legally point at. Invocations resolve to methods; inheritance and
// type references resolve to types. Imports are left open since they
// may name a package or a type.
func targetKind(k graph.RefKind) graph.SymbolKind {
	switch k {
	case graph.RefInvokes:
		return graph.KindMethod
	case graph.RefExtends, graph.RefImplements, graph.RefType:
		return graph.KindType
	default:
		return ""
	}
}
