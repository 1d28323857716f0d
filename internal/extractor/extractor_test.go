package extractor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comprehend/internal/graph"
)

func extractTestFile(t *testing.T, name string) *FileResult {
	t.Helper()
	ext, err := New("java")
	require.NoError(t, err)
	fr := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", name))
	require.NotNil(t, fr)
	return fr
}

func findSymbol(fr *FileResult, kind graph.SymbolKind, name string) *graph.Symbol {
	for _, s := range fr.Symbols {
		if s.Kind == kind && s.Name == name {
			return s
		}
	}
	return nil
}

func refNames(sym *graph.Symbol, kind graph.RefKind) []string {
	var names []string
	for _, r := range sym.Refs {
		if r.Kind == kind {
			names = append(names, r.Name)
		}
	}
	return names
}

func TestExtractor_UnsupportedLanguage(t *testing.T) {
	_, err := New("cobol")
	assert.Error(t, err)
}

func TestExtractor_JavaFile(t *testing.T) {
	fr := extractTestFile(t, "Car.java")
	require.False(t, fr.ParseFailed)

	t.Run("file and package symbols", func(t *testing.T) {
		file := findSymbol(fr, graph.KindFile, "Car.java")
		require.NotNil(t, file)
		assert.Equal(t, []string{"java.util.List"}, refNames(file, graph.RefImports))

		pkg := findSymbol(fr, graph.KindPackage, "com.fleet")
		require.NotNil(t, pkg)
		assert.Equal(t, file.ID, pkg.ParentID)
	})

	t.Run("class with implements reference", func(t *testing.T) {
		car := findSymbol(fr, graph.KindType, "Car")
		require.NotNil(t, car)
		assert.Equal(t, "com.fleet.Car", car.QualifiedName)
		assert.Equal(t, "com.fleet", car.Package)
		assert.Equal(t, []string{"Vehicle"}, refNames(car, graph.RefImplements))
		assert.Equal(t, 5, car.StartLine)
	})

	t.Run("field with type reference", func(t *testing.T) {
		field := findSymbol(fr, graph.KindField, "engine")
		require.NotNil(t, field)
		assert.Equal(t, "com.fleet.Car.engine", field.QualifiedName)
		assert.Equal(t, []string{"Engine"}, refNames(field, graph.RefType))
	})

	t.Run("method with invocation reference", func(t *testing.T) {
		method := findSymbol(fr, graph.KindMethod, "describe")
		require.NotNil(t, method)
		assert.Equal(t, "com.fleet.Car.describe", method.QualifiedName)
		assert.Contains(t, refNames(method, graph.RefInvokes), "start")
		assert.Contains(t, method.Content, "engine.start()")
	})

	t.Run("sibling top-level class", func(t *testing.T) {
		engine := findSymbol(fr, graph.KindType, "Engine")
		require.NotNil(t, engine)
		assert.Equal(t, "com.fleet.Engine", engine.QualifiedName)
	})

	t.Run("contains edges follow declaration tree", func(t *testing.T) {
		car := findSymbol(fr, graph.KindType, "Car")
		method := findSymbol(fr, graph.KindMethod, "describe")
		require.NotNil(t, car)
		require.NotNil(t, method)
		assert.Equal(t, car.ID, method.ParentID)

		var found bool
		for _, e := range fr.Edges {
			if e.From == car.ID && e.To == method.ID {
				assert.Equal(t, graph.EdgeContains, e.Kind)
				assert.Equal(t, graph.StatusResolved, e.Status)
				found = true
			}
		}
		assert.True(t, found, "expected a contains edge from Car to describe")
	})

	t.Run("symbol ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, s := range fr.Symbols {
			assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
			seen[s.ID] = true
		}
	})
}

func TestExtractor_Interface(t *testing.T) {
	fr := extractTestFile(t, "Vehicle.java")
	require.False(t, fr.ParseFailed)

	vehicle := findSymbol(fr, graph.KindType, "Vehicle")
	require.NotNil(t, vehicle)
	assert.Equal(t, "com.fleet.Vehicle", vehicle.QualifiedName)
	assert.Empty(t, vehicle.Refs)
}

func TestExtractor_ParseFailure(t *testing.T) {
	fr := extractTestFile(t, "Broken.java")
	assert.True(t, fr.ParseFailed)

	require.Len(t, fr.Symbols, 1)
	sym := fr.Symbols[0]
	assert.Equal(t, graph.KindError, sym.Kind)
	assert.Equal(t, filepath.Join("testdata", "Broken.java"), sym.QualifiedName)
	assert.Empty(t, fr.Edges)
}

func TestExtractor_MissingFile(t *testing.T) {
	ext, err := New("java")
	require.NoError(t, err)

	fr := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", "Nope.java"))
	assert.True(t, fr.ParseFailed)
	require.Len(t, fr.Symbols, 1)
	assert.Equal(t, graph.KindError, fr.Symbols[0].Kind)
}
