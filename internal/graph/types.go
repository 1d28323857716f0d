package graph

// SymbolKind classifies a declared source-code unit.
type SymbolKind string

const (
	KindFile    SymbolKind = "file"
	KindPackage SymbolKind = "package"
	KindType    SymbolKind = "type"
	KindMethod  SymbolKind = "method"
	KindField   SymbolKind = "field"
	// KindError marks a file whose grammar could not be parsed.
	// The symbol keeps the failure visible in the output instead of
	// dropping the file silently.
	KindError SymbolKind = "error"
)

// RefKind classifies a raw reference token found inside a symbol's source.
type RefKind string

const (
	RefExtends    RefKind = "extends"
	RefImplements RefKind = "implements"
	RefInvokes    RefKind = "invokes"
	RefType       RefKind = "references-type"
	RefImports    RefKind = "imports"
)

// Ref is an unresolved reference token collected during extraction.
// Resolution into edges happens in a later pass once all files are parsed.
type Ref struct {
	Name string  `json:"name"`
	Kind RefKind `json:"kind"`
}

// Symbol is a structured record of one declared source-code unit.
type Symbol struct {
	ID            string     `json:"id"`
	Kind          SymbolKind `json:"kind"`
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"`
	Package       string     `json:"package"`
	FilePath      string     `json:"file_path"`
	StartLine     int        `json:"start_line"`
	EndLine       int        `json:"end_line"`
	Indent        int        `json:"indent"`
	Content       string     `json:"content"`
	ParentID      string     `json:"parent_id,omitempty"`
	Refs          []Ref      `json:"refs,omitempty"`
}

// EdgeKind classifies a typed, directed relationship between two symbols.
type EdgeKind string

const (
	EdgeContains   EdgeKind = "contains"
	EdgeExtends    EdgeKind = "extends"
	EdgeImplements EdgeKind = "implements"
	EdgeInvokes    EdgeKind = "invokes"
	EdgeRefType    EdgeKind = "references-type"
	EdgeImports    EdgeKind = "imports"
)

// EdgeStatus records how the edge target was resolved.
type EdgeStatus string

const (
	// StatusResolved means exactly one candidate matched.
	StatusResolved EdgeStatus = "resolved"
	// StatusAmbiguous means multiple equally-ranked candidates matched;
	// one edge is emitted per candidate rather than guessing.
	StatusAmbiguous EdgeStatus = "ambiguous"
	// StatusUnresolved means no candidate was declared in the analyzed
	// file set. Expected for references into external code, not an error.
	StatusUnresolved EdgeStatus = "unresolved"
)

// Edge is a typed, directed relationship between two symbols.
// To is empty when Status is StatusUnresolved; TargetName always keeps
// the literal reference text.
type Edge struct {
	From       string     `json:"from"`
	To         string     `json:"to,omitempty"`
	Kind       EdgeKind   `json:"kind"`
	Status     EdgeStatus `json:"status"`
	TargetName string     `json:"target_name"`
}

// Summary is the generated natural-language text for one symbol.
// Ordinal records the position in the processing schedule at which
// it was produced.
type Summary struct {
	SymbolID string `json:"symbol_id"`
	Text     string `json:"text"`
	Ordinal  int    `json:"ordinal"`
	Failed   bool   `json:"failed,omitempty"`
}

// DependsKinds are the edge kinds the scheduler treats as hard
// dependencies: the target should be summarized before the source.
var DependsKinds = map[EdgeKind]bool{
	EdgeExtends:    true,
	EdgeImplements: true,
	EdgeInvokes:    true,
}
