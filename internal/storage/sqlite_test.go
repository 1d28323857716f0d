package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comprehend/internal/graph"
	"comprehend/internal/vectorstore"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndLoadRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	symbols := []*graph.Symbol{
		{ID: "a.java:Foo:1", Kind: graph.KindType, Name: "Foo", QualifiedName: "app.Foo", Package: "app", FilePath: "a.java", StartLine: 1, EndLine: 10, Content: "class Foo {}"},
		{ID: "a.java:bar:3", Kind: graph.KindMethod, Name: "bar", QualifiedName: "app.Foo.bar", Package: "app", FilePath: "a.java", StartLine: 3, EndLine: 5, Indent: 4, ParentID: "a.java:Foo:1"},
	}
	edges := []graph.Edge{
		{From: "a.java:Foo:1", To: "a.java:bar:3", Kind: graph.EdgeContains, Status: graph.StatusResolved, TargetName: "app.Foo.bar"},
		{From: "a.java:bar:3", Kind: graph.EdgeInvokes, Status: graph.StatusUnresolved, TargetName: "println"},
	}
	summaries := []graph.Summary{
		{SymbolID: "a.java:Foo:1", Text: "A class.", Ordinal: 0},
		{SymbolID: "a.java:bar:3", Text: "", Ordinal: 1, Failed: true},
	}

	require.NoError(t, s.SaveRun(ctx, symbols, edges, summaries))

	gotSyms, gotEdges, gotSums, err := s.LoadRun(ctx)
	require.NoError(t, err)
	assert.Len(t, gotSyms, 2)
	assert.Len(t, gotEdges, 2)
	assert.Len(t, gotSums, 2)

	t.Run("symbol fields survive", func(t *testing.T) {
		var foo *graph.Symbol
		for _, sym := range gotSyms {
			if sym.ID == "a.java:Foo:1" {
				foo = sym
			}
		}
		require.NotNil(t, foo)
		assert.Equal(t, graph.KindType, foo.Kind)
		assert.Equal(t, "app.Foo", foo.QualifiedName)
		assert.Equal(t, "class Foo {}", foo.Content)
	})

	t.Run("failed flag survives", func(t *testing.T) {
		var failed bool
		for _, sum := range gotSums {
			if sum.SymbolID == "a.java:bar:3" {
				failed = sum.Failed
			}
		}
		assert.True(t, failed)
	})

	t.Run("saving again upserts instead of duplicating", func(t *testing.T) {
		summaries[0].Text = "An updated class."
		require.NoError(t, s.SaveRun(ctx, symbols, edges, summaries))

		_, _, again, err := s.LoadRun(ctx)
		require.NoError(t, err)
		assert.Len(t, again, 2)
	})
}

func TestSQLiteStore_VectorQuery(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	put := func(key string, vec []float32) {
		require.NoError(t, s.Put(ctx, "proj", key, vec, vectorstore.Metadata{
			QualifiedName: "app." + key,
			Summary:       "summary of " + key,
		}))
	}
	put("near", []float32{1, 0, 0})
	put("mid", []float32{1, 1, 0})
	put("far", []float32{0, 0, 1})

	t.Run("ranks by cosine similarity", func(t *testing.T) {
		matches, err := s.Query(ctx, "proj", []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "near", matches[0].Key)
		assert.Equal(t, "mid", matches[1].Key)
		assert.Greater(t, matches[0].Score, matches[1].Score)
		assert.Equal(t, "summary of near", matches[0].Metadata.Summary)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		matches, err := s.Query(ctx, "other", []float32{1, 0, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("put overwrites", func(t *testing.T) {
		put("near", []float32{0, 1, 0})
		matches, err := s.Query(ctx, "proj", []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "near", matches[0].Key)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosineSimilarity([]float32{1, 2}, []float32{1, 2})), 1e-6)
	assert.InDelta(t, 0.0, float64(cosineSimilarity([]float32{1, 0}, []float32{0, 1})), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
