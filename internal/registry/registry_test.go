package registry

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetInput struct {
	Name  string `hcl:"name"`
	Times int    `hcl:"times,optional"`
}

type greetModule struct {
	got *greetInput
}

func (m *greetModule) Register(r *Registry) {
	r.RegisterAction("greet", Decoded(func(_ context.Context, _ *task.ExecContext, in *greetInput) error {
		m.got = in
		return nil
	}))
}

func body(t *testing.T, src string) hcl.Body {
	t.Helper()
	f, diags := hclsyntax.ParseConfig([]byte(src), "action.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return f.Body
}

func TestRegistry_DecodesAndRuns(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	mod := &greetModule{}
	reg := New(mod)

	// --- Act ---
	action, diags := reg.Action("greet", body(t, `name = "world"`), nil)
	require.False(t, diags.HasErrors(), diags.Error())
	err := action.Execute(context.Background(), &task.ExecContext{})

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, mod.got)
	assert.Equal(t, "world", mod.got.Name)
	assert.Equal(t, 0, mod.got.Times)
	assert.Equal(t, []string{"greet"}, reg.Types())
}

func TestRegistry_DecodeErrors(t *testing.T) {
	t.Parallel()

	reg := New(&greetModule{})

	_, diags := reg.Action("greet", body(t, `times = 2`), nil)
	assert.True(t, diags.HasErrors(), "missing required attribute")

	_, diags = reg.Action("greet", body(t, `name = "x"
unknown = 1`), nil)
	assert.True(t, diags.HasErrors(), "unexpected attribute")
}

func TestRegistry_UnknownType(t *testing.T) {
	t.Parallel()

	reg := New(&greetModule{})

	_, diags := reg.Action("shout", body(t, ``), nil)

	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Error(), `No action of type "shout"`)
	assert.Contains(t, diags.Error(), "greet")
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	reg := New(&greetModule{})

	assert.Panics(t, func() { (&greetModule{}).Register(reg) })
}
