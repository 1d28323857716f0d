package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("class X {}\n"), 0o644))
}

func TestCrawler_Crawl(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Main.java")
	writeFile(t, root, "src/util/Strings.java")
	writeFile(t, root, "README.md")
	writeFile(t, root, "src/Main_commented.java")
	writeFile(t, root, ".git/objects/Blob.java")
	writeFile(t, root, "node_modules/dep/Dep.java")
	writeFile(t, root, "target/Gen.java")

	c, err := New(root, []string{".java"})
	require.NoError(t, err)

	files, err := c.Crawl()
	require.NoError(t, err)

	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.Equal(t, []string{"src/Main.java", "src/util/Strings.java"}, rel)
}

func TestCrawler_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Main.java")
	writeFile(t, root, "generated/Gen.java")
	writeFile(t, root, "src/Skip.java")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("generated/\nsrc/Skip.java\n"), 0o644))

	c, err := New(root, []string{".java"})
	require.NoError(t, err)

	files, err := c.Crawl()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Main.java", filepath.Base(files[0]))
}

func TestCrawler_NotADirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Main.java")

	_, err := New(filepath.Join(root, "Main.java"), []string{".java"})
	assert.Error(t, err)

	_, err = New(filepath.Join(root, "missing"), []string{".java"})
	assert.Error(t, err)
}

func TestCrawler_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b/B.java")
	writeFile(t, root, "a/A.java")
	writeFile(t, root, "c/C.java")

	c, err := New(root, []string{".java"})
	require.NoError(t, err)

	first, err := c.Crawl()
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := c.Crawl()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
