package plan

import (
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/specialistvlad/buildgridgo/internal/topologystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(path string) *Node {
	return &Node{Task: task.New(&task.Declaration{Path: taskid.MustParse(path)})}
}

func TestPlan_LookupAndOrder(t *testing.T) {
	compile, test, jar := node(":compile"), node(":test"), node(":jar")
	test.DependsOn = []*Node{compile}
	jar.DependsOn = []*Node{test}

	p := New(nil, []*Node{compile, test, jar}, []taskid.Path{taskid.MustParse(":jar")}, nil)

	assert.Equal(t, []string{":compile", ":test", ":jar"}, p.Order())
	assert.Equal(t, 3, p.Len())
	got, ok := p.Node(taskid.MustParse(":test"))
	require.True(t, ok)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, 1, got.Predecessors())

	_, ok = p.Node(taskid.MustParse(":clean"))
	assert.False(t, ok)
}

func TestPlan_Independent(t *testing.T) {
	compile, lintA, lintB, report := node(":compile"), node(":lintA"), node(":lintB"), node(":report")
	lintA.DependsOn = []*Node{compile}
	report.Finalizes = []*Node{lintA}
	p := New(nil, []*Node{compile, lintA, lintB, report}, nil, nil)

	assert.True(t, p.Independent(lintA, lintB))
	assert.False(t, p.Independent(compile, lintA))
	assert.False(t, p.Independent(report, compile), "finalizer waits transitively for compile")
}

func TestPlan_Capacity(t *testing.T) {
	p := New(nil, nil, nil, nil)
	p.Resources["test-slot"] = 2

	assert.Equal(t, 2, p.Capacity("test-slot"))
	assert.Equal(t, 1, p.Capacity("db"))
}

func TestDroppedEdge_String(t *testing.T) {
	d := DroppedEdge{
		Edge:  topologystore.Edge{From: taskid.MustParse(":a"), To: taskid.MustParse(":b"), Kind: topologystore.ShouldRunAfter},
		Cycle: []string{":a", ":b", ":a"},
	}
	assert.Equal(t, ":a shouldRunAfter :b ignored, it would close the cycle :a -> :b -> :a", d.String())
}
