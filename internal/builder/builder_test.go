package builder

import (
	"context"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decl(path string) task.Declaration {
	return task.Declaration{Path: taskid.MustParse(path)}
}

func dependsOn(path string, refs ...string) task.Declaration {
	d := decl(path)
	d.DependsOn = refs
	return d
}

func requireGraphError(t *testing.T, err error, kind error) *GraphError {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var gerr *GraphError
	require.ErrorAs(t, err, &gerr)
	return gerr
}

// assertClosedWalk checks the reported cycle starts and ends on the same task
// and that every step is one of the reported edges.
func assertClosedWalk(t *testing.T, gerr *GraphError) {
	t.Helper()
	require.GreaterOrEqual(t, len(gerr.Cycle), 2)
	assert.Equal(t, gerr.Cycle[0], gerr.Cycle[len(gerr.Cycle)-1])
	require.Len(t, gerr.Edges, len(gerr.Cycle)-1)
	for i, e := range gerr.Edges {
		pair := []string{e.From.String(), e.To.String()}
		if e.Kind == topologystore.FinalizedBy {
			pair[0], pair[1] = pair[1], pair[0]
		}
		assert.Equal(t, []string{gerr.Cycle[i], gerr.Cycle[i+1]}, pair, "edge %d", i)
	}
}

func TestBuild_LinearChain(t *testing.T) {
	// Arrange
	decls := []task.Declaration{
		dependsOn(":jar", "test"),
		dependsOn(":test", "compile"),
		decl(":compile"),
		decl(":clean"),
	}

	// Act
	p, err := Build(context.Background(), decls, []string{"jar"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{":compile", ":test", ":jar"}, p.Order())
	jar, ok := p.Node(taskid.MustParse(":jar"))
	require.True(t, ok)
	assert.True(t, jar.Requested)
	require.Len(t, jar.DependsOn, 1)
	assert.Equal(t, ":test", jar.DependsOn[0].ID())
	test, _ := p.Node(taskid.MustParse(":test"))
	require.Len(t, test.Dependents, 1)
	assert.Equal(t, ":jar", test.Dependents[0].ID())
}

func TestBuild_TieBreakIsDeclarationOrder(t *testing.T) {
	decls := []task.Declaration{
		decl(":c"),
		dependsOn(":d", "a", "b"),
		decl(":b"),
		decl(":a"),
	}

	p, err := Build(context.Background(), decls, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{":c", ":b", ":a", ":d"}, p.Order())
}

func TestBuild_IsDeterministic(t *testing.T) {
	decls := []task.Declaration{
		dependsOn(":assemble", "jar", "docs"),
		dependsOn(":jar", "compile"),
		dependsOn(":docs", "compile"),
		decl(":compile"),
	}

	first, err := Build(context.Background(), decls, []string{"assemble"})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Build(context.Background(), decls, []string{"assemble"})
		require.NoError(t, err)
		assert.Equal(t, first.Order(), again.Order())
	}
	assert.Equal(t, []string{":compile", ":jar", ":docs", ":assemble"}, first.Order())
}

func TestBuild_CircularDependency(t *testing.T) {
	decls := []task.Declaration{
		dependsOn(":a", "b"),
		dependsOn(":b", "c"),
		dependsOn(":c", "a"),
	}

	_, err := Build(context.Background(), decls, nil)

	gerr := requireGraphError(t, err, ErrCircularDependency)
	assert.Equal(t, []string{":a", ":b", ":c", ":a"}, gerr.Cycle)
	assertClosedWalk(t, gerr)
	assert.Contains(t, err.Error(), ":a -> :b -> :c -> :a")
}

func TestBuild_SelfDependency(t *testing.T) {
	_, err := Build(context.Background(), []task.Declaration{dependsOn(":a", "a")}, nil)

	gerr := requireGraphError(t, err, ErrCircularDependency)
	assert.Equal(t, []string{":a", ":a"}, gerr.Cycle)
	assertClosedWalk(t, gerr)
}

func TestBuild_CycleThroughFinalizer(t *testing.T) {
	// report finalizes compile but compile depends on report.
	compile := dependsOn(":compile", "report")
	compile.FinalizedBy = []string{"report"}
	decls := []task.Declaration{compile, decl(":report")}

	_, err := Build(context.Background(), decls, []string{"compile"})

	gerr := requireGraphError(t, err, ErrCircularDependency)
	assertClosedWalk(t, gerr)
}

func TestBuild_UnknownTaskReference(t *testing.T) {
	decls := []task.Declaration{
		dependsOn(":a", "b"),
		dependsOn(":b", "missing"),
	}

	_, err := Build(context.Background(), decls, nil)

	requireGraphError(t, err, ErrUnknownTaskReference)
	assert.Contains(t, err.Error(), ":missing")
	assert.Contains(t, err.Error(), ":b")
}

func TestBuild_UnknownRequestedTask(t *testing.T) {
	_, err := Build(context.Background(), []task.Declaration{decl(":a")}, []string{"deploy"})

	requireGraphError(t, err, ErrUnknownTaskReference)
	assert.Contains(t, err.Error(), "deploy")
}

func TestBuild_DuplicateTask(t *testing.T) {
	_, err := Build(context.Background(), []task.Declaration{decl(":a"), decl(":a")}, nil)

	requireGraphError(t, err, ErrDuplicateTask)
}

func TestBuild_InvalidDeclaration(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		_, err := Build(context.Background(), []task.Declaration{{}}, nil)
		requireGraphError(t, err, ErrInvalidDeclaration)
	})
	t.Run("malformed reference", func(t *testing.T) {
		_, err := Build(context.Background(), []task.Declaration{dependsOn(":a", "bad name")}, nil)
		requireGraphError(t, err, ErrInvalidDeclaration)
	})
}

func TestBuild_ShouldRunAfterCycleIsDropped(t *testing.T) {
	// Arrange: a shouldRunAfter b while b dependsOn a.
	a := decl(":a")
	a.ShouldRunAfter = []string{"b"}
	decls := []task.Declaration{a, dependsOn(":b", "a")}

	// Act
	p, err := Build(context.Background(), decls, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{":a", ":b"}, p.Order())
	require.Len(t, p.Dropped, 1)
	assert.Equal(t, ":a", p.Dropped[0].Edge.From.String())
	assert.Equal(t, ":b", p.Dropped[0].Edge.To.String())
	assert.Equal(t, []string{":a", ":b", ":a"}, p.Dropped[0].Cycle)

	remaining, err := p.Graph.Topology().EdgesFrom(context.Background(), taskid.MustParse(":a"), topologystore.ShouldRunAfter)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestBuild_MustRunAfterCycleIsFatal(t *testing.T) {
	a := decl(":a")
	a.MustRunAfter = []string{"b"}
	decls := []task.Declaration{a, dependsOn(":b", "a")}

	_, err := Build(context.Background(), decls, nil)

	gerr := requireGraphError(t, err, ErrCircularDependency)
	assertClosedWalk(t, gerr)
}

func TestBuild_SoftCycleWithMustRunAfterIsFatal(t *testing.T) {
	a := decl(":a")
	a.ShouldRunAfter = []string{"b"}
	b := decl(":b")
	b.MustRunAfter = []string{"a"}

	_, err := Build(context.Background(), []task.Declaration{a, b}, nil)

	gerr := requireGraphError(t, err, ErrCircularDependency)
	assert.Equal(t, []string{":a", ":b", ":a"}, gerr.Cycle)
	assertClosedWalk(t, gerr)
}

func TestBuild_SoftCycleFindsMustRunAfterOnAnyClosingPath(t *testing.T) {
	// Arrange: c shouldRunAfter a closes both c -> a -> b -> c (dependsOn
	// only) and c -> a -> c (through a mustRunAfter c).
	a := dependsOn(":a", "b")
	a.MustRunAfter = []string{"c"}
	c := decl(":c")
	c.ShouldRunAfter = []string{"a"}
	decls := []task.Declaration{a, dependsOn(":b", "c"), c}

	// Act
	p, err := Build(context.Background(), decls, nil)

	// Assert
	assert.Nil(t, p)
	gerr := requireGraphError(t, err, ErrCircularDependency)
	assertClosedWalk(t, gerr)
	var kinds []topologystore.EdgeKind
	for _, e := range gerr.Edges {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, topologystore.MustRunAfter)
}

func TestBuild_ShouldRunAfterKeptWithoutCycle(t *testing.T) {
	b := decl(":b")
	b.ShouldRunAfter = []string{"a"}

	p, err := Build(context.Background(), []task.Declaration{b, decl(":a")}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{":a", ":b"}, p.Order())
	assert.Empty(t, p.Dropped)
	node, _ := p.Node(taskid.MustParse(":b"))
	require.Len(t, node.RunsAfter, 1)
	assert.Equal(t, ":a", node.RunsAfter[0].ID())
}

func TestBuild_MustRunAfterDoesNotSchedule(t *testing.T) {
	test := decl(":test")
	test.MustRunAfter = []string{"clean"}
	decls := []task.Declaration{test, decl(":clean")}

	t.Run("target not requested", func(t *testing.T) {
		p, err := Build(context.Background(), decls, []string{"test"})
		require.NoError(t, err)
		assert.Equal(t, []string{":test"}, p.Order())
	})
	t.Run("both requested", func(t *testing.T) {
		p, err := Build(context.Background(), decls, []string{"test", "clean"})
		require.NoError(t, err)
		assert.Equal(t, []string{":clean", ":test"}, p.Order())
	})
}

func TestBuild_Finalizers(t *testing.T) {
	// Arrange
	compile := decl(":compile")
	compile.FinalizedBy = []string{"report"}
	decls := []task.Declaration{
		compile,
		dependsOn(":report", "prepareReport"),
		decl(":prepareReport"),
	}

	// Act
	p, err := Build(context.Background(), decls, []string{"compile"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{":compile", ":prepareReport", ":report"}, p.Order())
	report, ok := p.Node(taskid.MustParse(":report"))
	require.True(t, ok)
	assert.True(t, report.OnlyFinalizer)
	assert.False(t, report.Requested)
	require.Len(t, report.Finalizes, 1)
	assert.Equal(t, ":compile", report.Finalizes[0].ID())
	c, _ := p.Node(taskid.MustParse(":compile"))
	assert.False(t, c.OnlyFinalizer)
	require.Len(t, c.Followers, 1)
}

func TestBuild_RequestedFinalizerIsNotOnlyFinalizer(t *testing.T) {
	compile := decl(":compile")
	compile.FinalizedBy = []string{"report"}

	p, err := Build(context.Background(), []task.Declaration{compile, decl(":report")}, []string{"compile", "report"})

	require.NoError(t, err)
	report, _ := p.Node(taskid.MustParse(":report"))
	assert.False(t, report.OnlyFinalizer)
	assert.True(t, report.Requested)
}

func TestBuild_Excluded(t *testing.T) {
	decls := []task.Declaration{
		dependsOn(":jar", "test", "compile"),
		dependsOn(":test", "testClasses"),
		decl(":testClasses"),
		decl(":compile"),
	}

	p, err := Build(context.Background(), decls, []string{"jar"}, WithExcluded("test"))

	require.NoError(t, err)
	assert.Equal(t, []string{":compile", ":jar"}, p.Order())
}

func TestBuild_MultiProjectSelection(t *testing.T) {
	decls := []task.Declaration{
		decl(":lib:compile"),
		dependsOn(":lib:test", "compile"),
		decl(":app:compile"),
		dependsOn(":app:test", "compile", ":lib:compile"),
	}

	t.Run("bare name matches every project", func(t *testing.T) {
		p, err := Build(context.Background(), decls, []string{"test"})
		require.NoError(t, err)
		assert.Equal(t, []string{":lib:compile", ":lib:test", ":app:compile", ":app:test"}, p.Order())
		assert.Len(t, p.Requested, 2)
	})
	t.Run("path selects one project", func(t *testing.T) {
		p, err := Build(context.Background(), decls, []string{":app:test"})
		require.NoError(t, err)
		assert.Equal(t, []string{":lib:compile", ":app:compile", ":app:test"}, p.Order())
	})
	t.Run("relative references stay in the project", func(t *testing.T) {
		p, err := Build(context.Background(), decls, []string{":lib:test"})
		require.NoError(t, err)
		assert.Equal(t, []string{":lib:compile", ":lib:test"}, p.Order())
	})
}

func TestBuild_Resources(t *testing.T) {
	p, err := Build(context.Background(), []task.Declaration{decl(":a")}, nil, WithResources(map[string]int{"db": 3}))

	require.NoError(t, err)
	assert.Equal(t, 3, p.Capacity("db"))
	assert.Equal(t, 1, p.Capacity("other"))
}

func TestBuild_DuplicateRelationsCollapse(t *testing.T) {
	b := dependsOn(":b", "a")
	b.MustRunAfter = []string{"a"}

	p, err := Build(context.Background(), []task.Declaration{decl(":a"), b}, nil)

	require.NoError(t, err)
	node, _ := p.Node(taskid.MustParse(":b"))
	assert.Len(t, node.DependsOn, 1)
	assert.Empty(t, node.RunsAfter)
	assert.Equal(t, 1, node.Predecessors())
}
