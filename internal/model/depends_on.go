// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file contains the parsing and validation logic for the relation
// attributes: `depends_on`, `must_run_after`, `should_run_after` and
// `finalized_by`.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// relationAttributes lists the attributes that declare graph edges.
var relationAttributes = []string{"depends_on", "must_run_after", "should_run_after", "finalized_by"}

// parseRelation decodes a relation attribute. The value must be a list
// literal of task references such as `["compile", ":lib:jar"]`.
func parseRelation(attrs hcl.Attributes, name string, ctx *hcl.EvalContext) ([]string, hcl.Diagnostics) {
	attr, exists := attrs[name]
	if !exists {
		return nil, nil
	}
	expr := attr.Expr

	if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
		if _, isTuple := syntaxExpr.(*hclsyntax.TupleConsExpr); !isTuple {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  fmt.Sprintf("Invalid %s value", name),
				Detail:   fmt.Sprintf("The '%s' attribute must be a list of task references.", name),
				Subject:  expr.Range().Ptr(),
			}}
		}
	}

	var refs []string
	diags := gohcl.DecodeExpression(expr, ctx, &refs)
	return refs, diags
}
