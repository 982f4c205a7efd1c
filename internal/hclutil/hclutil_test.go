package hclutil

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func parseBody(t *testing.T, src string) *hcl.BodyContent {
	t.Helper()
	f, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	content, diags := f.Body.Content(&hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "list"}, {Name: "name"}, {Name: "props"}},
		Blocks:     []hcl.BlockHeaderSchema{{Type: "inputs"}, {Type: "action", LabelNames: []string{"type"}}},
	})
	require.False(t, diags.HasErrors(), diags.Error())
	return content
}

func TestFindUniqueBlock(t *testing.T) {
	t.Parallel()

	content := parseBody(t, `
inputs {}
inputs {}
`)
	block, diags := FindUniqueBlock(content.Blocks, "inputs")
	assert.NotNil(t, block)
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Error(), `Duplicate "inputs" block`)

	block, diags = FindUniqueBlock(content.Blocks, "missing")
	assert.Nil(t, block)
	assert.False(t, diags.HasErrors())
}

func TestBlocksOfType(t *testing.T) {
	t.Parallel()

	content := parseBody(t, `
action "print" {}
inputs {}
action "exec" {}
`)
	blocks := BlocksOfType(content.Blocks, "action")
	require.Len(t, blocks, 2)
	assert.Equal(t, "print", blocks[0].Labels[0])
	assert.Equal(t, "exec", blocks[1].Labels[0])
}

func TestStringAttributes(t *testing.T) {
	t.Parallel()

	content := parseBody(t, `
list = ["a", "b"]
name = "x"
`)
	list, diags := StringList(content.Attributes, "list", nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, []string{"a", "b"}, list)

	name, diags := String(content.Attributes, "name", nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, "x", name)

	missing, diags := StringList(content.Attributes, "props", nil)
	assert.Nil(t, missing)
	assert.False(t, diags.HasErrors())
}

func TestScalarMap(t *testing.T) {
	t.Parallel()

	t.Run("scalars", func(t *testing.T) {
		content := parseBody(t, `props = { target = "17", debug = true, level = 2 }`)
		props, diags := ScalarMap(content.Attributes["props"].Expr, nil)
		require.False(t, diags.HasErrors(), diags.Error())
		assert.True(t, props["target"].Equals(cty.StringVal("17")).True())
		assert.True(t, props["debug"].Equals(cty.True).True())
		assert.True(t, props["level"].Equals(cty.NumberIntVal(2)).True())
	})

	t.Run("nested values rejected", func(t *testing.T) {
		content := parseBody(t, `props = { nested = ["a"] }`)
		_, diags := ScalarMap(content.Attributes["props"].Expr, nil)
		require.True(t, diags.HasErrors())
		assert.Contains(t, diags.Error(), `Property "nested"`)
	})

	t.Run("not an object", func(t *testing.T) {
		content := parseBody(t, `props = "flat"`)
		_, diags := ScalarMap(content.Attributes["props"].Expr, nil)
		assert.True(t, diags.HasErrors())
	})
}

func TestEnvContext(t *testing.T) {
	t.Setenv("BUILDGRID_TEST_VALUE", "42")

	ctx := EnvContext("BUILDGRID_")
	env := ctx.Variables["env"]
	assert.Equal(t, "42", env.GetAttr("BUILDGRID_TEST_VALUE").AsString())
	assert.False(t, env.Type().HasAttribute("PATH"))
}

func TestDiagnosticsError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	diags := hcl.Diagnostics{
		{Severity: hcl.DiagError, Summary: "Unsupported action", Detail: `unknown action "nope"`},
		{Severity: hcl.DiagWarning, Summary: "Deprecated attribute"},
		{Severity: hcl.DiagError, Summary: "Missing attribute", Detail: `"message" is required`},
	}

	// --- Act ---
	err := DiagnosticsError(diags)

	// --- Assert ---
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown action "nope"`)
	assert.Contains(t, err.Error(), `"message" is required`)
	assert.NotContains(t, err.Error(), "Deprecated attribute")
	assert.NotContains(t, err.Error(), "other diagnostic")
	assert.NoError(t, DiagnosticsError(hcl.Diagnostics{diags[1]}))
}
