// Package crawler discovers source files under a project directory.
package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]bool{
	".git":         true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"build":        true,
	"out":          true,
}

// Crawler walks a directory tree collecting files that match a set of
// extensions, honoring .gitignore when present.
type Crawler struct {
	root       string
	extensions map[string]bool
	matcher    *ignore.GitIgnore
}

func New(root string, extensions []string) (*Crawler, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "crawl", Path: abs, Err: fs.ErrInvalid}
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[e] = true
	}

	c := &Crawler{root: abs, extensions: exts}
	if matcher, err := ignore.CompileIgnoreFile(filepath.Join(abs, ".gitignore")); err == nil {
		c.matcher = matcher
	}
	return c, nil
}

// Crawl returns the matching file paths sorted lexicographically so
// that runs over the same tree see the same order.
func (c *Crawler) Crawl() ([]string, error) {
	var files []string

	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(c.root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if path == c.root {
				return nil
			}
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if c.matcher != nil && c.matcher.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !c.extensions[filepath.Ext(path)] {
			return nil
		}
		// Annotated copies from a previous run are outputs, not inputs.
		if strings.HasSuffix(path, "_commented"+filepath.Ext(path)) {
			return nil
		}
		if c.matcher != nil && c.matcher.MatchesPath(rel) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
