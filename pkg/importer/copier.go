// Zaparoo Library
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Library.
//
// Zaparoo Library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.

package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type entryKind int

const (
	kindSkip entryKind = iota
	kindDir
	kindFile
)

// classify follows symlinks so linked files and folders are copied as
// their targets. Anything that is neither is skipped.
func classify(fsys afero.Fs, path string, info fs.FileInfo) entryKind {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := fsys.Stat(path)
		if err != nil {
			return kindSkip
		}
		info = target
	}
	switch {
	case info.IsDir():
		return kindDir
	case info.Mode().IsRegular():
		return kindFile
	default:
		return kindSkip
	}
}

// countFiles returns the number of files copyTree will copy from dir.
func countFiles(ctx context.Context, fsys afero.Fs, dir string) (int, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	n := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p := filepath.Join(dir, e.Name())
		switch classify(fsys, p, e) {
		case kindDir:
			sub, err := countFiles(ctx, fsys, p)
			if err != nil {
				return 0, err
			}
			n += sub
		case kindFile:
			n++
		case kindSkip:
		}
	}
	return n, nil
}

// copyState is threaded through the recursive copy. Only the goroutine
// running the job touches it.
type copyState struct {
	ctx    context.Context
	src    afero.Fs
	dst    afero.Fs
	onFile func(copied int)
	buf    []byte
	copied int
}

func (s *copyState) copyTree(srcDir, dstDir string) error {
	entries, err := afero.ReadDir(s.src, srcDir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", srcDir, err)
	}

	for _, e := range entries {
		if err := s.ctx.Err(); err != nil {
			return err
		}

		srcPath := filepath.Join(srcDir, e.Name())
		dstPath := filepath.Join(dstDir, e.Name())
		switch classify(s.src, srcPath, e) {
		case kindDir:
			if err := s.dst.Mkdir(dstPath, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dstPath, err)
			}
			if err := s.copyTree(srcPath, dstPath); err != nil {
				return err
			}
		case kindFile:
			if err := s.copyFile(srcPath, dstPath); err != nil {
				return err
			}
			s.copied++
			s.onFile(s.copied)
		case kindSkip:
		}
	}
	return nil
}

func (s *copyState) copyFile(srcPath, dstPath string) error {
	in, err := s.src.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer func() { _ = in.Close() }()

	out, err := s.dst.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	if _, err := io.CopyBuffer(out, in, s.buf); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", srcPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dstPath, err)
	}
	return nil
}
