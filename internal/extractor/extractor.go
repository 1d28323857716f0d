package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"

	"comprehend/internal/graph"
)

// FileResult is the output of extracting one source file: an ordered
// symbol list covering the file itself, its package, and each type,
// method, and field declaration, plus the contains edges along the
// declaration tree. ParseFailed is set when the file contributed an
// error symbol instead of its declarations.
type FileResult struct {
	Path        string
	Symbols     []*graph.Symbol
	Edges       []graph.Edge
	ParseFailed bool
}

// LanguageExtractor defines what each supported grammar must provide.
type LanguageExtractor interface {
	Language() *sitter.Language
	Extensions() []string
	// ExtractTree walks one parsed file and returns its symbols and
	// contains edges. The root node is guaranteed error-free.
	ExtractTree(root *sitter.Node, src []byte, path string) ([]*graph.Symbol, []graph.Edge)
}

// Extractor parses single files into symbol records. It performs no
// cross-file resolution; raw reference tokens are attached to each
// symbol for a later resolution pass.
type Extractor struct {
	lang LanguageExtractor
}

// New creates an extractor for the given language.
func New(lang string) (*Extractor, error) {
	switch lang {
	case "java":
		return &Extractor{lang: &JavaExtractor{}}, nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return e.lang.Extensions()
}

// ExtractFile parses one file's text. A grammar failure does not drop
// the file: the result carries a single error symbol with the file path
// so partial failure stays visible in the run output.
func (e *Extractor) ExtractFile(ctx context.Context, path string, src []byte) *FileResult {
	parser := sitter.NewParser()
	parser.SetLanguage(e.lang.Language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil || tree.RootNode().HasError() {
		return &FileResult{
			Path:        path,
			Symbols:     []*graph.Symbol{errorSymbol(path)},
			ParseFailed: true,
		}
	}

	symbols, edges := e.lang.ExtractTree(tree.RootNode(), src, path)
	return &FileResult{Path: path, Symbols: symbols, Edges: edges}
}

// ExtractFromFile reads and parses one file from disk. Read failures
// are reported the same way as grammar failures.
func (e *Extractor) ExtractFromFile(ctx context.Context, path string) *FileResult {
	src, err := os.ReadFile(path)
	if err != nil {
		return &FileResult{
			Path:        path,
			Symbols:     []*graph.Symbol{errorSymbol(path)},
			ParseFailed: true,
		}
	}
	return e.ExtractFile(ctx, path, src)
}

func errorSymbol(path string) *graph.Symbol {
	return &graph.Symbol{
		ID:            path + ":error",
		Kind:          graph.KindError,
		Name:          filepath.Base(path),
		QualifiedName: path,
		FilePath:      path,
	}
}

// symbolID builds a run-unique symbol ID in the file:name:line form.
func symbolID(path, name string, line int) string {
	return fmt.Sprintf("%s:%s:%d", path, name, line)
}
