// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FSInfo struct, which stores file system metadata for
// a parsed block.
package model

import "path/filepath"

// FSInfo links a parsed object back to the file it was declared in.
type FSInfo struct {
	FilePath string
}

// NewFSInfo creates the metadata for filePath.
func NewFSInfo(filePath string) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
	}
}

// Dir returns the directory containing the source file.
func (f *FSInfo) Dir() string {
	return filepath.Dir(f.FilePath)
}
