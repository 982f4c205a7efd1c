// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Task structure, the parsed form of a `task` block,
// and the logic that decodes its body.
package model

import (
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgridgo/internal/hclutil"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/zclconf/go-cty/cty"
)

// Task is the format-agnostic representation of a `task` block.
type Task struct {
	Path          taskid.Path
	Description   string
	FSInformation *FSInfo
	// Dir is the working directory task paths are resolved against.
	Dir string

	DependsOn      []string
	MustRunAfter   []string
	ShouldRunAfter []string
	FinalizedBy    []string

	InputFiles        []string
	Properties        map[string]cty.Value
	Outputs           []string
	ExclusiveResource string

	Actions []*ActionBlock

	// evalCtx exposes task.* and env.* to the task's action blocks.
	evalCtx *hcl.EvalContext
}

// ActionBlock is an `action "<type>"` block whose body is decoded by the
// registered module for its type.
type ActionBlock struct {
	Type  string
	Body  hcl.Body
	Range hcl.Range
}

var taskBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "depends_on"},
		{Name: "must_run_after"},
		{Name: "should_run_after"},
		{Name: "finalized_by"},
		{Name: "outputs"},
		{Name: "exclusive_resource"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "inputs"},
		{Type: "action", LabelNames: []string{"type"}},
	},
}

var inputsBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "files"},
		{Name: "properties"},
	},
}

// newTaskFromHCL decodes a `task` block declared inside the given project.
func newTaskFromHCL(block *hcl.Block, projects []string, dir, filePath string, parent *hcl.EvalContext) (*Task, hcl.Diagnostics) {
	name := block.Labels[0]
	path := taskid.New(name, projects...)
	if _, err := taskid.Parse(path.String()); err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid task name",
			Detail:   err.Error(),
			Subject:  block.LabelRanges[0].Ptr(),
		}}
	}

	t := &Task{
		Path:          path,
		FSInformation: NewFSInfo(filePath),
		Dir:           dir,
	}
	t.evalCtx = parent.NewChild()
	t.evalCtx.Variables = map[string]cty.Value{
		"task": cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal(name),
			"path": cty.StringVal(path.String()),
			"dir":  cty.StringVal(dir),
		}),
	}

	var allDiags hcl.Diagnostics
	content, diags := block.Body.Content(taskBodySchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	t.Description, diags = hclutil.String(content.Attributes, "description", t.evalCtx)
	allDiags = append(allDiags, diags...)
	t.ExclusiveResource, diags = hclutil.String(content.Attributes, "exclusive_resource", t.evalCtx)
	allDiags = append(allDiags, diags...)
	t.Outputs, diags = hclutil.StringList(content.Attributes, "outputs", t.evalCtx)
	allDiags = append(allDiags, diags...)

	relations := map[string]*[]string{
		"depends_on":       &t.DependsOn,
		"must_run_after":   &t.MustRunAfter,
		"should_run_after": &t.ShouldRunAfter,
		"finalized_by":     &t.FinalizedBy,
	}
	for _, attr := range relationAttributes {
		*relations[attr], diags = parseRelation(content.Attributes, attr, t.evalCtx)
		allDiags = append(allDiags, diags...)
	}

	inputs, diags := hclutil.FindUniqueBlock(content.Blocks, "inputs")
	allDiags = append(allDiags, diags...)
	if inputs != nil {
		allDiags = append(allDiags, t.parseInputs(inputs)...)
	}

	for _, ab := range hclutil.BlocksOfType(content.Blocks, "action") {
		t.Actions = append(t.Actions, &ActionBlock{Type: ab.Labels[0], Body: ab.Body, Range: ab.DefRange})
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return t, allDiags
}

func (t *Task) parseInputs(block *hcl.Block) hcl.Diagnostics {
	content, diags := block.Body.Content(inputsBodySchema)
	if diags.HasErrors() {
		return diags
	}

	files, fileDiags := hclutil.StringList(content.Attributes, "files", t.evalCtx)
	diags = append(diags, fileDiags...)
	t.InputFiles = files

	if attr, ok := content.Attributes["properties"]; ok {
		props, propDiags := hclutil.ScalarMap(attr.Expr, t.evalCtx)
		diags = append(diags, propDiags...)
		t.Properties = props
	}
	return diags
}

// projectDir resolves a project's `dir` attribute against the directory of
// the file declaring it.
func projectDir(fileDir, dir string) string {
	if dir == "" {
		return fileDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(fileDir, dir)
}
