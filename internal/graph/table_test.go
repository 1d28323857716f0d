package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(id, name, qualified, file string, line int) *Symbol {
	return &Symbol{
		ID:            id,
		Kind:          KindType,
		Name:          name,
		QualifiedName: qualified,
		FilePath:      file,
		StartLine:     line,
	}
}

func TestSymbolTable_Add(t *testing.T) {
	table := NewSymbolTable()

	require.NoError(t, table.Add(sym("a.java:Foo:1", "Foo", "pkg.Foo", "a.java", 1)))
	assert.Equal(t, 1, table.Len())

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := table.Add(sym("a.java:Foo:1", "Foo", "pkg.Foo", "a.java", 1))
		assert.Error(t, err)
	})

	t.Run("nil rejected", func(t *testing.T) {
		assert.Error(t, table.Add(nil))
	})

	t.Run("frozen table rejects inserts", func(t *testing.T) {
		table.Freeze()
		err := table.Add(sym("a.java:Bar:5", "Bar", "pkg.Bar", "a.java", 5))
		assert.Error(t, err)
		assert.Equal(t, 1, table.Len())
	})
}

func TestSymbolTable_Lookup(t *testing.T) {
	table := NewSymbolTable()
	require.NoError(t, table.Add(sym("a.java:Foo:1", "Foo", "pkg.Foo", "a.java", 1)))
	require.NoError(t, table.Add(sym("b.java:Foo:1", "Foo", "other.Foo", "b.java", 1)))
	table.Freeze()

	t.Run("qualified name wins", func(t *testing.T) {
		got := table.Lookup("pkg.Foo")
		require.Len(t, got, 1)
		assert.Equal(t, "a.java:Foo:1", got[0].ID)
	})

	t.Run("simple name returns all declarations", func(t *testing.T) {
		got := table.Lookup("Foo")
		assert.Len(t, got, 2)
	})

	t.Run("unknown name returns nothing", func(t *testing.T) {
		assert.Empty(t, table.Lookup("Missing"))
	})

	t.Run("declared", func(t *testing.T) {
		assert.True(t, table.Declared("Foo"))
		assert.False(t, table.Declared("Missing"))
	})
}

func TestSymbolTable_SymbolsOrder(t *testing.T) {
	table := NewSymbolTable()
	// Insert out of order on purpose.
	require.NoError(t, table.Add(sym("b.java:Late:9", "Late", "pkg.Late", "b.java", 9)))
	require.NoError(t, table.Add(sym("a.java:Second:5", "Second", "pkg.Second", "a.java", 5)))
	require.NoError(t, table.Add(sym("a.java:First:1", "First", "pkg.First", "a.java", 1)))
	table.Freeze()

	got := table.Symbols()
	require.Len(t, got, 3)
	assert.Equal(t, "First", got[0].Name)
	assert.Equal(t, "Second", got[1].Name)
	assert.Equal(t, "Late", got[2].Name)

	t.Run("stable across calls", func(t *testing.T) {
		again := table.Symbols()
		for i := range got {
			assert.Equal(t, got[i].ID, again[i].ID)
		}
	})
}
