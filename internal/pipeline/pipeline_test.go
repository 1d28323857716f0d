package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comprehend/internal/config"
	"comprehend/internal/extractor"
	"comprehend/internal/graph"
	"comprehend/internal/report"
	"comprehend/internal/scheduler"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	return New(cfg, log.New(os.Stderr, "test ", 0))
}

func TestPipeline_Extract(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "Good.java")
	bad := filepath.Join(dir, "Bad.java")
	require.NoError(t, os.WriteFile(good, []byte("package app;\n\nclass Good {\n    void run() {}\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("clas {{{"), 0o644))

	p := testPipeline(t)
	ext, err := extractor.New("java")
	require.NoError(t, err)
	rep := report.New()

	table, contains, err := p.extract(context.Background(), ext, []string{good, bad}, rep)
	require.NoError(t, err)
	table.Freeze()

	t.Run("good file contributes its declarations", func(t *testing.T) {
		assert.True(t, table.Declared("Good"))
		assert.True(t, table.Declared("run"))
		assert.NotEmpty(t, contains)
	})

	t.Run("bad file contributes an error symbol and an issue", func(t *testing.T) {
		syms := table.Lookup(bad)
		require.Len(t, syms, 1)
		assert.Equal(t, graph.KindError, syms[0].Kind)
		assert.Equal(t, 1, rep.Counts()[report.ParseError])
	})
}

func TestPipeline_RunRequiresInputDir(t *testing.T) {
	p := testPipeline(t)
	_, err := p.Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRecordCycleWarning(t *testing.T) {
	cyc := func(name, file string) *graph.Symbol {
		return &graph.Symbol{
			ID: file + ":" + name + ":1", Kind: graph.KindType, Name: name,
			QualifiedName: "app." + name, FilePath: file, StartLine: 1,
		}
	}
	foo := cyc("Foo", "foo.java")
	bar := cyc("Bar", "bar.java")
	solo := cyc("Solo", "solo.java")
	edges := []graph.Edge{
		{From: foo.ID, To: bar.ID, Kind: graph.EdgeInvokes, Status: graph.StatusResolved, TargetName: "Bar"},
		{From: bar.ID, To: foo.ID, Kind: graph.EdgeInvokes, Status: graph.StatusResolved, TargetName: "Foo"},
	}
	sched := scheduler.Compute([]*graph.Symbol{foo, bar, solo}, edges)
	require.InDelta(t, 2.0/3.0, sched.CycleFraction, 1e-9)

	t.Run("fraction above threshold raises a warning", func(t *testing.T) {
		rep := report.New()
		recordCycleWarning(rep, sched, 0.25)
		require.Equal(t, 1, rep.Counts()[report.CycleWarning])
		assert.Equal(t, report.SeverityWarning, rep.Issues()[0].Severity)
	})

	t.Run("fraction at or below threshold stays quiet", func(t *testing.T) {
		rep := report.New()
		recordCycleWarning(rep, sched, 2.0/3.0)
		assert.Zero(t, rep.Counts()[report.CycleWarning])
	})

	t.Run("acyclic schedule never warns", func(t *testing.T) {
		rep := report.New()
		recordCycleWarning(rep, scheduler.Compute([]*graph.Symbol{solo}, nil), 0)
		assert.Zero(t, rep.Counts()[report.CycleWarning])
	})
}

func TestRecordResolutionIssues(t *testing.T) {
	table := graph.NewSymbolTable()
	require.NoError(t, table.Add(&graph.Symbol{
		ID: "a.java:Foo:1", Kind: graph.KindType, Name: "Foo",
		QualifiedName: "app.Foo", FilePath: "a.java",
	}))
	table.Freeze()

	edges := []graph.Edge{
		// Two ambiguous edges from the same reference collapse into
		// one issue.
		{From: "a.java:Foo:1", To: "x", Kind: graph.EdgeRefType, Status: graph.StatusAmbiguous, TargetName: "Worker"},
		{From: "a.java:Foo:1", To: "y", Kind: graph.EdgeRefType, Status: graph.StatusAmbiguous, TargetName: "Worker"},
		{From: "a.java:Foo:1", Kind: graph.EdgeInvokes, Status: graph.StatusUnresolved, TargetName: "println"},
		{From: "a.java:Foo:1", To: "z", Kind: graph.EdgeExtends, Status: graph.StatusResolved, TargetName: "Base"},
	}

	rep := report.New()
	recordResolutionIssues(rep, table, edges)

	counts := rep.Counts()
	assert.Equal(t, 1, counts[report.AmbiguousReference])
	assert.Equal(t, 1, counts[report.UnresolvedReference])

	for _, is := range rep.Issues() {
		assert.Equal(t, "a.java", is.File)
	}
}
