package assembler

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"comprehend/internal/graph"
)

// Annotator writes summaries back into copies of the source files as
// documentation comments. The original files are never touched; each
// annotated copy sits next to its source with a _commented suffix.
type Annotator struct {
	summaries map[string]graph.Summary
}

func NewAnnotator(summaries []graph.Summary) *Annotator {
	m := make(map[string]graph.Summary, len(summaries))
	for _, s := range summaries {
		m[s.SymbolID] = s
	}
	return &Annotator{summaries: m}
}

// Annotate writes one annotated copy per file that has at least one
// summarized symbol. Returns the paths written.
func (a *Annotator) Annotate(symbols []*graph.Symbol) ([]string, error) {
	byFile := make(map[string][]*graph.Symbol)
	for _, sym := range symbols {
		if !summarizable(sym) {
			continue
		}
		s, ok := a.summaries[sym.ID]
		if !ok || s.Failed || s.Text == "" {
			continue
		}
		byFile[sym.FilePath] = append(byFile[sym.FilePath], sym)
	}

	files := make([]string, 0, len(byFile))
	for path := range byFile {
		files = append(files, path)
	}
	sort.Strings(files)

	var written []string
	for _, path := range files {
		out, err := a.annotateFile(path, byFile[path])
		if err != nil {
			return written, err
		}
		written = append(written, out)
	}
	return written, nil
}

func (a *Annotator) annotateFile(path string, syms []*graph.Symbol) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	lines := strings.Split(string(data), "\n")

	// Inserting from the bottom up keeps earlier line numbers valid.
	sort.Slice(syms, func(i, j int) bool { return syms[i].StartLine > syms[j].StartLine })

	for _, sym := range syms {
		idx := sym.StartLine - 1
		if idx < 0 || idx > len(lines) {
			continue
		}
		block := commentBlock(a.summaries[sym.ID].Text, sym.Indent)
		lines = append(lines[:idx], append(block, lines[idx:]...)...)
	}

	out := annotatedPath(path)
	if err := os.WriteFile(out, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}
	return out, nil
}

func commentBlock(text string, indent int) []string {
	pad := strings.Repeat(" ", indent)
	block := []string{pad + "/**"}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		block = append(block, strings.TrimRight(pad+" * "+line, " "))
	}
	return append(block, pad+" */")
}

func annotatedPath(path string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		return path[:i] + "_commented" + path[i:]
	}
	return path + "_commented"
}
