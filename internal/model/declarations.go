// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file converts the parsed Workspace into the task declarations the
// graph builder consumes, resolving every action block against a registry.
package model

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgridgo/internal/hclutil"
	"github.com/specialistvlad/buildgridgo/internal/task"
)

// ActionResolver builds a task action from an action block body.
type ActionResolver interface {
	Action(typ string, body hcl.Body, ctx *hcl.EvalContext) (task.Action, hcl.Diagnostics)
}

// Declarations converts every task into a task.Declaration, in workspace
// order. All action errors are reported together.
func (w *Workspace) Declarations(actions ActionResolver) ([]task.Declaration, error) {
	decls := make([]task.Declaration, 0, len(w.Tasks))
	var allDiags hcl.Diagnostics

	for _, t := range w.Tasks {
		d := task.Declaration{
			Path:              t.Path,
			Description:       t.Description,
			DependsOn:         t.DependsOn,
			MustRunAfter:      t.MustRunAfter,
			ShouldRunAfter:    t.ShouldRunAfter,
			FinalizedBy:       t.FinalizedBy,
			Inputs:            task.Inputs{Files: t.InputFiles, Properties: t.Properties},
			Outputs:           t.Outputs,
			ExclusiveResource: t.ExclusiveResource,
			WorkDir:           t.Dir,
		}
		for _, ab := range t.Actions {
			a, diags := actions.Action(ab.Type, ab.Body, t.evalCtx)
			allDiags = append(allDiags, diags...)
			if a != nil {
				d.Actions = append(d.Actions, a)
			}
		}
		decls = append(decls, d)
	}

	if allDiags.HasErrors() {
		return nil, fmt.Errorf("failed to build task actions: %w", hclutil.DiagnosticsError(allDiags))
	}
	return decls, nil
}
