// Package export projects the symbol graph down to its types and
// renders the result as JSON or GraphViz DOT.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"comprehend/internal/graph"
)

// TypeNode is one type in the projected graph.
type TypeNode struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName"`
	Package       string `json:"package"`
	FilePath      string `json:"filePath"`
}

// TypeLink connects two types. Members are collapsed into their owning
// type, so a method call becomes a link between the two enclosing
// types.
type TypeLink struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Kind graph.EdgeKind `json:"kind"`
}

type TypeGraph struct {
	Nodes []TypeNode `json:"nodes"`
	Links []TypeLink `json:"links"`
}

// Project collapses the symbol graph to type granularity. Only
// resolved edges contribute links; ambiguous and unresolved edges are
// diagnostics, not structure.
func Project(symbols []*graph.Symbol, edges []graph.Edge) *TypeGraph {
	byID := make(map[string]*graph.Symbol, len(symbols))
	for _, sym := range symbols {
		byID[sym.ID] = sym
	}

	owner := func(id string) string {
		for sym, ok := byID[id]; ok; sym, ok = byID[sym.ParentID] {
			if sym.Kind == graph.KindType {
				return sym.ID
			}
			if sym.ParentID == "" {
				return ""
			}
		}
		return ""
	}

	tg := &TypeGraph{}
	for _, sym := range symbols {
		if sym.Kind != graph.KindType {
			continue
		}
		tg.Nodes = append(tg.Nodes, TypeNode{
			ID:            sym.ID,
			Name:          sym.Name,
			QualifiedName: sym.QualifiedName,
			Package:       sym.Package,
			FilePath:      sym.FilePath,
		})
	}
	sort.Slice(tg.Nodes, func(i, j int) bool { return tg.Nodes[i].QualifiedName < tg.Nodes[j].QualifiedName })

	seen := make(map[TypeLink]bool)
	for _, e := range edges {
		if e.Status != graph.StatusResolved || !graph.DependsKinds[e.Kind] {
			continue
		}
		from, to := owner(e.From), owner(e.To)
		if from == "" || to == "" || from == to {
			continue
		}
		link := TypeLink{From: from, To: to, Kind: e.Kind}
		if seen[link] {
			continue
		}
		seen[link] = true
		tg.Links = append(tg.Links, link)
	}
	sort.Slice(tg.Links, func(i, j int) bool {
		a, b := tg.Links[i], tg.Links[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Kind < b.Kind
	})

	return tg
}

// WriteJSON renders the projection as indented JSON.
func (tg *TypeGraph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tg)
}

var dotStyles = map[graph.EdgeKind]string{
	graph.EdgeExtends:    `[arrowhead=empty]`,
	graph.EdgeImplements: `[arrowhead=empty, style=dashed]`,
	graph.EdgeInvokes:    `[arrowhead=vee]`,
}

// WriteDOT renders the projection as a GraphViz digraph, one cluster
// per package.
func (tg *TypeGraph) WriteDOT(w io.Writer, name string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("  rankdir=TB;\n  node [shape=box, fontname=\"Helvetica\"];\n\n")

	byPackage := make(map[string][]TypeNode)
	for _, n := range tg.Nodes {
		byPackage[n.Package] = append(byPackage[n.Package], n)
	}
	packages := make([]string, 0, len(byPackage))
	for pkg := range byPackage {
		packages = append(packages, pkg)
	}
	sort.Strings(packages)

	for i, pkg := range packages {
		label := pkg
		if label == "" {
			label = "(default)"
		}
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n    label=%q;\n", i, label)
		for _, n := range byPackage[pkg] {
			fmt.Fprintf(&b, "    %q [label=%q];\n", n.ID, n.Name)
		}
		b.WriteString("  }\n")
	}

	b.WriteString("\n")
	for _, l := range tg.Links {
		fmt.Fprintf(&b, "  %q -> %q %s;\n", l.From, l.To, dotStyles[l.Kind])
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
