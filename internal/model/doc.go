// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of the buildgrid HCL
// build files. Its core purpose is to turn the user's `task` and `project`
// blocks into a strongly-typed, in-memory Workspace and from there into the
// task declarations the graph builder consumes.
//
// # Core Concepts
//
//   - Workspace: The root container. It aggregates every task parsed from one
//     or more .hcl files, in file and source order. That order is the
//     declaration order used to break scheduling ties.
//
//   - Project: A `project "lib" {}` block groups tasks under the `:lib` path
//     and may move their working directory with `dir`.
//
//   - Task: One `task "name" {}` block. Relations (`depends_on`,
//     `must_run_after`, `should_run_after`, `finalized_by`) are kept as raw
//     references and resolved by the builder.
//
//   - ActionBlock: An `action "<type>" {}` block. Its body stays undecoded
//     until a registry resolves the type, so every module owns its own schema.
//
//   - FSInfo: Metadata that links every Task back to its source file for
//     error messages.
//
// # File Format
//
//	project "app" {
//	  task "compile" {
//	    inputs {
//	      files      = ["src"]
//	      properties = { target = "17" }
//	    }
//	    outputs            = ["build/classes"]
//	    exclusive_resource = "compiler"
//	    finalized_by       = ["report"]
//
//	    action "exec" {
//	      command = "javac"
//	      args    = ["-d", "build/classes", "src/Main.java"]
//	    }
//	  }
//	}
//
// Expressions may reference `env.<NAME>` for environment variables and
// `task.name`, `task.path` and `task.dir` for the enclosing task.
package model
