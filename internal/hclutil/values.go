package hclutil

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
)

// StringList decodes an optional list-of-strings attribute.
func StringList(attrs hcl.Attributes, name string, ctx *hcl.EvalContext) ([]string, hcl.Diagnostics) {
	attr, ok := attrs[name]
	if !ok {
		return nil, nil
	}
	var out []string
	diags := gohcl.DecodeExpression(attr.Expr, ctx, &out)
	return out, diags
}

// String decodes an optional string attribute.
func String(attrs hcl.Attributes, name string, ctx *hcl.EvalContext) (string, hcl.Diagnostics) {
	attr, ok := attrs[name]
	if !ok {
		return "", nil
	}
	var out string
	diags := gohcl.DecodeExpression(attr.Expr, ctx, &out)
	return out, diags
}

// ScalarMap evaluates an object expression whose attributes must all be
// strings, numbers or bools. Null attributes are kept as typed nulls.
func ScalarMap(expr hcl.Expression, ctx *hcl.EvalContext) (map[string]cty.Value, hcl.Diagnostics) {
	val, diags := expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, diags
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid properties",
			Detail:   fmt.Sprintf("Expected an object of scalar values, got %s.", ty.FriendlyName()),
			Subject:  expr.Range().Ptr(),
		})
	}

	out := make(map[string]cty.Value)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		name := k.AsString()
		if !v.Type().IsPrimitiveType() {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid property value",
				Detail:   fmt.Sprintf("Property %q must be a string, number or bool, got %s.", name, v.Type().FriendlyName()),
				Subject:  expr.Range().Ptr(),
			})
			continue
		}
		out[name] = v
	}
	return out, diags
}

// EnvContext returns an evaluation context exposing the process environment
// as the "env" object. Only variables with the given prefixes are exposed;
// no prefixes exposes everything.
func EnvContext(prefixes ...string) *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	environ := os.Environ()
	sort.Strings(environ)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hasAnyPrefix(k, prefixes) {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
