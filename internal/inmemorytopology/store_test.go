package inmemorytopology

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(path string, order int) *task.Task {
	return task.New(&task.Declaration{Path: taskid.MustParse(path), Order: order})
}

func TestAddAndGetTask(t *testing.T) {
	s := New()
	ctx := context.Background()
	compile := newTask(":compile", 0)

	added, err := s.AddTask(ctx, compile)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddTask(ctx, newTask(":compile", 5))
	require.NoError(t, err)
	assert.False(t, added, "adding the same path twice must be a no-op")

	got, ok := s.GetTask(ctx, taskid.MustParse(":compile"))
	require.True(t, ok)
	assert.Same(t, compile, got)

	_, ok = s.GetTask(ctx, taskid.MustParse(":missing"))
	assert.False(t, ok)
}

func TestAllTasks_DeclarationOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i, p := range []string{":c", ":a", ":b"} {
		_, err := s.AddTask(ctx, newTask(p, i))
		require.NoError(t, err)
	}

	var ids []string
	for _, tk := range s.AllTasks(ctx) {
		ids = append(ids, tk.ID())
	}
	assert.Equal(t, []string{":c", ":a", ":b"}, ids)
}

func TestEdges(t *testing.T) {
	s := New()
	ctx := context.Background()
	jar, test, lint := taskid.MustParse(":jar"), taskid.MustParse(":test"), taskid.MustParse(":lint")
	for i, p := range []string{":jar", ":test", ":lint"} {
		_, err := s.AddTask(ctx, newTask(p, i))
		require.NoError(t, err)
	}

	dep := topologystore.Edge{From: jar, To: test, Kind: topologystore.DependsOn}
	order := topologystore.Edge{From: jar, To: lint, Kind: topologystore.ShouldRunAfter}
	require.NoError(t, s.AddEdge(ctx, dep))
	require.NoError(t, s.AddEdge(ctx, dep), "duplicate edges are ignored")
	require.NoError(t, s.AddEdge(ctx, order))

	all, err := s.EdgesFrom(ctx, jar)
	require.NoError(t, err)
	assert.Equal(t, []topologystore.Edge{dep, order}, all)

	deps, err := s.EdgesFrom(ctx, jar, topologystore.DependsOn)
	require.NoError(t, err)
	assert.Equal(t, []topologystore.Edge{dep}, deps)

	incoming, err := s.EdgesTo(ctx, lint)
	require.NoError(t, err)
	assert.Equal(t, []topologystore.Edge{order}, incoming)

	require.NoError(t, s.RemoveEdge(ctx, order))
	incoming, err = s.EdgesTo(ctx, lint)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	err = s.AddEdge(ctx, topologystore.Edge{From: jar, To: taskid.MustParse(":nope"), Kind: topologystore.DependsOn})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "':nope' not found")

	_, err = s.EdgesFrom(ctx, taskid.MustParse(":nope"))
	require.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	root := newTask(":root", 0)
	_, err := s.AddTask(ctx, root)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := fmt.Sprintf(":t%d", i)
			_, err := s.AddTask(ctx, newTask(p, i))
			assert.NoError(t, err)
			assert.NoError(t, s.AddEdge(ctx, topologystore.Edge{From: taskid.MustParse(p), To: root.Path(), Kind: topologystore.DependsOn}))
			_, _ = s.EdgesTo(ctx, root.Path())
		}(i)
	}
	wg.Wait()

	incoming, err := s.EdgesTo(ctx, root.Path())
	require.NoError(t, err)
	assert.Len(t, incoming, 50)
	assert.Len(t, s.AllTasks(ctx), 51)
}
