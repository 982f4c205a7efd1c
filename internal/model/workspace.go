// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Workspace, the root container for all tasks loaded
// from a user's .hcl files, and the functions that discover and parse them.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/fsutil"
	"github.com/specialistvlad/buildgridgo/internal/hclutil"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
)

// Workspace represents every task declared by the loaded build files.
type Workspace struct {
	Tasks []*Task
	// Files lists the parsed build files in load order.
	Files []string
}

// NewWorkspace creates and returns an empty Workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		Tasks: []*Task{},
	}
}

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "project", LabelNames: []string{"name"}},
		{Type: "task", LabelNames: []string{"name"}},
	},
}

var projectSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "dir"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
	},
}

// parseFile parses a single HCL file and returns the tasks found within it,
// in source order.
func parseFile(filePath string, parser *hclparse.Parser, evalCtx *hcl.EvalContext) ([]*Task, error) {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, hclutil.DiagnosticsError(diags))
	}

	content, diags := hclFile.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filePath, hclutil.DiagnosticsError(diags))
	}

	fileDir := NewFSInfo(filePath).Dir()
	var tasks []*Task
	var allDiags hcl.Diagnostics
	for _, block := range content.Blocks {
		switch block.Type {
		case "task":
			t, taskDiags := newTaskFromHCL(block, nil, fileDir, filePath, evalCtx)
			allDiags = append(allDiags, taskDiags...)
			if t != nil {
				tasks = append(tasks, t)
			}
		case "project":
			projectTasks, projectDiags := parseProject(block, fileDir, filePath, evalCtx)
			allDiags = append(allDiags, projectDiags...)
			tasks = append(tasks, projectTasks...)
		}
	}

	if allDiags.HasErrors() {
		return nil, fmt.Errorf("error parsing tasks in file %s: %w", filePath, hclutil.DiagnosticsError(allDiags))
	}
	return tasks, nil
}

// parseProject decodes a `project` block. Its label may name a nested
// project chain such as "libs:core".
func parseProject(block *hcl.Block, fileDir, filePath string, evalCtx *hcl.EvalContext) ([]*Task, hcl.Diagnostics) {
	projects := strings.Split(strings.TrimPrefix(block.Labels[0], taskid.Separator), taskid.Separator)

	content, diags := block.Body.Content(projectSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	dir, dirDiags := hclutil.String(content.Attributes, "dir", evalCtx)
	diags = append(diags, dirDiags...)
	dir = projectDir(fileDir, dir)

	var tasks []*Task
	for _, tb := range content.Blocks {
		t, taskDiags := newTaskFromHCL(tb, projects, dir, filePath, evalCtx)
		diags = append(diags, taskDiags...)
		if t != nil {
			tasks = append(tasks, t)
		}
	}
	return tasks, diags
}

// LoadWorkspace finds and parses all HCL files under path into a Workspace.
// path may also name a single file.
func LoadWorkspace(ctx context.Context, path string) (*Workspace, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading workspace from path", "path", path)

	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find build files in %s: %w", path, err)
	}

	ws := NewWorkspace()
	if len(files) == 0 {
		logger.Warn("No .hcl build files found in path, returning empty workspace", "path", path)
		return ws, nil
	}

	parser := hclparse.NewParser()
	evalCtx := hclutil.EnvContext()
	for _, file := range files {
		tasks, err := parseFile(file, parser, evalCtx)
		if err != nil {
			return nil, err
		}
		ws.Tasks = append(ws.Tasks, tasks...)
		ws.Files = append(ws.Files, file)
	}

	logger.Debug("Workspace loaded.", "files", len(files), "tasks", len(ws.Tasks))
	return ws, nil
}

// InputDirs returns the directories that hold declared input files, one
// per task working directory. Used to scope file watching.
func (w *Workspace) InputDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, t := range w.Tasks {
		if len(t.InputFiles) == 0 {
			continue
		}
		if _, ok := seen[t.Dir]; ok {
			continue
		}
		seen[t.Dir] = struct{}{}
		dirs = append(dirs, t.Dir)
	}
	return dirs
}
