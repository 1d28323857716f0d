package extractor

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"comprehend/internal/graph"
)

// JavaExtractor implements LanguageExtractor for Java.
type JavaExtractor struct{}

func (j *JavaExtractor) Language() *sitter.Language {
	return java.GetLanguage()
}

func (j *JavaExtractor) Extensions() []string {
	return []string{".java"}
}

// ExtractTree walks one Java file's AST. It emits a file symbol, a
// package symbol, and one symbol per class/interface/enum, method,
// constructor, and field, wiring contains edges along the declaration
// tree. Raw reference tokens (extends/implements identifiers, invoked
// method names, field and parameter types, imports) are attached to
// the owning symbol for the resolution pass.
func (j *JavaExtractor) ExtractTree(root *sitter.Node, src []byte, path string) ([]*graph.Symbol, []graph.Edge) {
	w := &javaWalker{src: src, path: path}

	fileSym := &graph.Symbol{
		ID:            path,
		Kind:          graph.KindFile,
		Name:          filepath.Base(path),
		QualifiedName: path,
		FilePath:      path,
		StartLine:     1,
		EndLine:       int(root.EndPoint().Row) + 1,
	}
	w.add(fileSym, "")

	pkgName := w.packageName(root)
	scopeID := fileSym.ID
	scopeName := ""
	if pkgName != "" {
		pkgSym := &graph.Symbol{
			ID:            symbolID(path, pkgName, 1),
			Kind:          graph.KindPackage,
			Name:          pkgName,
			QualifiedName: pkgName,
			Package:       pkgName,
			FilePath:      path,
			StartLine:     1,
			EndLine:       fileSym.EndLine,
		}
		w.add(pkgSym, fileSym.ID)
		scopeID = pkgSym.ID
		scopeName = pkgName
	}

	w.pkg = pkgName
	w.collectImports(root, fileSym)
	w.walk(root, scopeID, scopeName)

	return w.symbols, w.edges
}

type javaWalker struct {
	src     []byte
	path    string
	pkg     string
	symbols []*graph.Symbol
	edges   []graph.Edge
}

func (w *javaWalker) add(sym *graph.Symbol, parentID string) {
	sym.ParentID = parentID
	w.symbols = append(w.symbols, sym)
	if parentID != "" {
		w.edges = append(w.edges, graph.Edge{
			From:       parentID,
			To:         sym.ID,
			Kind:       graph.EdgeContains,
			Status:     graph.StatusResolved,
			TargetName: sym.QualifiedName,
		})
	}
}

func (w *javaWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Content(w.src))
}

func (w *javaWalker) fieldText(n *sitter.Node, field string) string {
	return w.text(n.ChildByFieldName(field))
}

func (w *javaWalker) packageName(root *sitter.Node) string {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "package_declaration" {
			for k := 0; k < int(child.NamedChildCount()); k++ {
				g := child.NamedChild(k)
				if g.Type() == "scoped_identifier" || g.Type() == "identifier" {
					return w.text(g)
				}
			}
		}
	}
	return ""
}

func (w *javaWalker) collectImports(root *sitter.Node, fileSym *graph.Symbol) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() != "import_declaration" {
			continue
		}
		for k := 0; k < int(child.NamedChildCount()); k++ {
			g := child.NamedChild(k)
			if g.Type() == "scoped_identifier" || g.Type() == "identifier" {
				fileSym.Refs = append(fileSym.Refs, graph.Ref{
					Name: w.text(g),
					Kind: graph.RefImports,
				})
			}
		}
	}
}

// walk descends through the tree, emitting symbols for type, method,
// and field declarations. scopeID/scopeName track the enclosing
// declaration for parent wiring and qualified names.
func (w *javaWalker) walk(node *sitter.Node, scopeID, scopeName string) {
	switch node.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration":
		w.walkType(node, scopeID, scopeName)
		return
	case "method_declaration", "constructor_declaration":
		w.walkMethod(node, scopeID, scopeName)
		return
	case "field_declaration":
		w.walkField(node, scopeID, scopeName)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i), scopeID, scopeName)
	}
}

func (w *javaWalker) walkType(node *sitter.Node, scopeID, scopeName string) {
	name := w.fieldText(node, "name")
	if name == "" {
		return
	}

	qualified := join(scopeName, name)
	sym := &graph.Symbol{
		ID:            symbolID(w.path, name, int(node.StartPoint().Row)+1),
		Kind:          graph.KindType,
		Name:          name,
		QualifiedName: qualified,
		Package:       w.pkg,
		FilePath:      w.path,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Indent:        int(node.StartPoint().Column),
		Content:       node.Content(w.src),
		Refs:          w.inheritanceRefs(node),
	}
	w.add(sym, scopeID)

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			w.walk(body.NamedChild(i), sym.ID, qualified)
		}
	}
}

// inheritanceRefs collects extends/implements identifiers from a type
// declaration. Classes use superclass + super_interfaces children;
// interfaces use extends_interfaces.
func (w *javaWalker) inheritanceRefs(node *sitter.Node) []graph.Ref {
	var refs []graph.Ref
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "superclass":
			for _, name := range w.typeIdentifiers(child) {
				refs = append(refs, graph.Ref{Name: name, Kind: graph.RefExtends})
			}
		case "super_interfaces":
			for _, name := range w.typeIdentifiers(child) {
				refs = append(refs, graph.Ref{Name: name, Kind: graph.RefImplements})
			}
		case "extends_interfaces":
			for _, name := range w.typeIdentifiers(child) {
				refs = append(refs, graph.Ref{Name: name, Kind: graph.RefExtends})
			}
		}
	}
	return refs
}

func (w *javaWalker) typeIdentifiers(node *sitter.Node) []string {
	var names []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "type_identifier" {
			names = append(names, w.text(n))
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	return names
}

func (w *javaWalker) walkMethod(node *sitter.Node, scopeID, scopeName string) {
	name := w.fieldText(node, "name")
	if name == "" {
		return
	}

	var refs []graph.Ref
	for _, call := range w.methodCalls(node) {
		refs = append(refs, graph.Ref{Name: call, Kind: graph.RefInvokes})
	}
	for _, t := range w.signatureTypes(node) {
		refs = append(refs, graph.Ref{Name: t, Kind: graph.RefType})
	}

	sym := &graph.Symbol{
		ID:            symbolID(w.path, name, int(node.StartPoint().Row)+1),
		Kind:          graph.KindMethod,
		Name:          name,
		QualifiedName: join(scopeName, name),
		Package:       w.pkg,
		FilePath:      w.path,
		StartLine:     int(node.StartPoint().Row) + 1,
		EndLine:       int(node.EndPoint().Row) + 1,
		Indent:        int(node.StartPoint().Column),
		Content:       node.Content(w.src),
		Refs:          refs,
	}
	w.add(sym, scopeID)
}

// methodCalls collects the names of all method invocations inside a
// method body.
func (w *javaWalker) methodCalls(node *sitter.Node) []string {
	var calls []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n.Type() == "method_invocation" {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				calls = append(calls, w.text(nameNode))
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	return calls
}

// signatureTypes collects parameter and return type identifiers from a
// method declaration.
func (w *javaWalker) signatureTypes(node *sitter.Node) []string {
	var names []string
	if ret := node.ChildByFieldName("type"); ret != nil {
		names = append(names, w.typeIdentifiers(ret)...)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() != "formal_parameter" && p.Type() != "spread_parameter" {
				continue
			}
			if pt := p.ChildByFieldName("type"); pt != nil {
				names = append(names, w.typeIdentifiers(pt)...)
			}
		}
	}
	return names
}

func (w *javaWalker) walkField(node *sitter.Node, scopeID, scopeName string) {
	typeNode := node.ChildByFieldName("type")
	var refs []graph.Ref
	if typeNode != nil {
		for _, name := range w.typeIdentifiers(typeNode) {
			refs = append(refs, graph.Ref{Name: name, Kind: graph.RefType})
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		name := w.fieldText(decl, "name")
		if name == "" {
			continue
		}
		sym := &graph.Symbol{
			ID:            symbolID(w.path, name, int(node.StartPoint().Row)+1),
			Kind:          graph.KindField,
			Name:          name,
			QualifiedName: join(scopeName, name),
			Package:       w.pkg,
			FilePath:      w.path,
			StartLine:     int(node.StartPoint().Row) + 1,
			EndLine:       int(node.EndPoint().Row) + 1,
			Indent:        int(node.StartPoint().Column),
			Content:       node.Content(w.src),
			Refs:          refs,
		}
		w.add(sym, scopeID)
	}
}

func join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}
