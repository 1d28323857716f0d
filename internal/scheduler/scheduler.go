// Package scheduler computes a total processing order over all symbols
// so that, for every resolved unambiguous extends/implements/invokes
// edge, the target is summarized before the source. Source graphs are
// not guaranteed acyclic, so strongly-connected components are detected
// first and each cycle is flattened deterministically.
package scheduler

import (
	"sort"

	"comprehend/internal/graph"
)

// DefaultCycleWarnThreshold is the fraction of symbols participating in
// non-trivial cycles above which a CycleWarning is raised.
const DefaultCycleWarnThreshold = 0.25

// Schedule is the scheduler's output: a total order plus cycle
// diagnostics.
type Schedule struct {
	// Order contains every symbol exactly once.
	Order []*graph.Symbol
	// Cycles lists each non-trivial strongly-connected component as
	// the qualified names of its members, entry point first.
	Cycles [][]string
	// CycleFraction is the share of symbols inside non-trivial cycles.
	CycleFraction float64
}

// Position returns a map from symbol ID to its index in the order.
func (s *Schedule) Position() map[string]int {
	pos := make(map[string]int, len(s.Order))
	for i, sym := range s.Order {
		pos[sym.ID] = i
	}
	return pos
}

// Compute builds the schedule for the given symbols and edge set. Only
// resolved, unambiguous edges of the dependency kinds constrain the
// order; everything else falls back to (file path, declaration order)
// so runs are reproducible. The run is never aborted for cycles: each
// strongly-connected component is entered at its lexicographically
// smallest qualified name and the remaining members follow in
// qualified-name order, a bounded relaxation scoped to that cycle.
func Compute(symbols []*graph.Symbol, edges []graph.Edge) *Schedule {
	idx := make(map[string]int, len(symbols))
	for i, s := range symbols {
		idx[s.ID] = i
	}

	// deps[i] lists the symbols i depends on (edge source -> target
	// means target precedes source).
	deps := make([][]int, len(symbols))
	for _, e := range edges {
		if e.Status != graph.StatusResolved || !graph.DependsKinds[e.Kind] {
			continue
		}
		from, okF := idx[e.From]
		to, okT := idx[e.To]
		if !okF || !okT || from == to {
			continue
		}
		deps[from] = append(deps[from], to)
	}

	comp := tarjan(len(symbols), deps)

	members := make(map[int][]int)
	for i, c := range comp {
		members[c] = append(members[c], i)
	}

	// Order each component's members: entry point is the smallest
	// qualified name, the rest follow in qualified-name order.
	inCycle := 0
	var cycles [][]string
	for _, m := range members {
		if len(m) < 2 {
			continue
		}
		sort.Slice(m, func(a, b int) bool {
			return symbols[m[a]].QualifiedName < symbols[m[b]].QualifiedName
		})
		inCycle += len(m)
		names := make([]string, len(m))
		for i, si := range m {
			names[i] = symbols[si].QualifiedName
		}
		cycles = append(cycles, names)
	}
	sort.Slice(cycles, func(a, b int) bool { return cycles[a][0] < cycles[b][0] })

	// Condensed DAG over components, then Kahn's algorithm with a
	// deterministic tie-break on the component's first declaration.
	compDeps := make(map[int]map[int]bool)
	indegree := make(map[int]int)
	for c := range members {
		compDeps[c] = make(map[int]bool)
		indegree[c] = 0
	}
	for i, ds := range deps {
		for _, d := range ds {
			if comp[i] != comp[d] && !compDeps[comp[i]][comp[d]] {
				compDeps[comp[i]][comp[d]] = true
			}
		}
	}
	dependents := make(map[int][]int)
	for c, ds := range compDeps {
		for d := range ds {
			dependents[d] = append(dependents[d], c)
			indegree[c]++
		}
	}

	key := func(c int) *graph.Symbol {
		m := members[c]
		best := symbols[m[0]]
		for _, si := range m[1:] {
			s := symbols[si]
			if s.FilePath < best.FilePath ||
				(s.FilePath == best.FilePath && s.StartLine < best.StartLine) {
				best = s
			}
		}
		return best
	}
	less := func(a, b int) bool {
		ka, kb := key(a), key(b)
		if ka.FilePath != kb.FilePath {
			return ka.FilePath < kb.FilePath
		}
		if ka.StartLine != kb.StartLine {
			return ka.StartLine < kb.StartLine
		}
		return ka.ID < kb.ID
	}

	var ready []int
	for c, d := range indegree {
		if d == 0 {
			ready = append(ready, c)
		}
	}

	order := make([]*graph.Symbol, 0, len(symbols))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool { return less(ready[a], ready[b]) })
		c := ready[0]
		ready = ready[1:]

		for _, si := range members[c] {
			order = append(order, symbols[si])
		}
		for _, dep := range dependents[c] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	frac := 0.0
	if len(symbols) > 0 {
		frac = float64(inCycle) / float64(len(symbols))
	}
	return &Schedule{Order: order, Cycles: cycles, CycleFraction: frac}
}

// tarjan assigns a strongly-connected component index to every node.
// Iterative form: declaration graphs of large codebases can be deep
// enough to overflow a recursive walk.
func tarjan(n int, deps [][]int) []int {
	const unvisited = -1

	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range index {
		index[i] = unvisited
		comp[i] = unvisited
	}

	var stack []int
	next := 0
	nComp := 0

	type frame struct {
		v, ci int
	}

	for root := 0; root < n; root++ {
		if index[root] != unvisited {
			continue
		}
		work := []frame{{v: root}}
		for len(work) > 0 {
			f := &work[len(work)-1]
			v := f.v

			if f.ci == 0 {
				index[v] = next
				lowlink[v] = next
				next++
				stack = append(stack, v)
				onStack[v] = true
			}

			advanced := false
			for f.ci < len(deps[v]) {
				u := deps[v][f.ci]
				f.ci++
				if index[u] == unvisited {
					work = append(work, frame{v: u})
					advanced = true
					break
				}
				if onStack[u] && index[u] < lowlink[v] {
					lowlink[v] = index[u]
				}
			}
			if advanced {
				continue
			}

			// v is finished: pop an SCC if v is its root.
			if lowlink[v] == index[v] {
				for {
					u := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[u] = false
					comp[u] = nComp
					if u == v {
						break
					}
				}
				nComp++
			}

			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1].v
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
		}
	}
	return comp
}
