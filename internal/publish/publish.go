// Package publish exports a loaded board as a tree of markdown files.
package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"teamboard-cli/internal/pages"
)

type WriteOptions struct {
	IncludeDone     bool
	IncludeActivity bool
	Overwrite       bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteBoard writes <toDir>/boards/<id>/index.md plus one file per task
// under tasks/. It stops at the first file it cannot write.
func WriteBoard(b *pages.Board, toDir string, opt WriteOptions) (WriteResult, error) {
	if b == nil {
		return WriteResult{}, errors.New("missing board")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	ropt := RenderOptions{IncludeDone: opt.IncludeDone, IncludeActivity: opt.IncludeActivity}

	boardDir := filepath.Join(filepath.Clean(toDir), "boards", fmt.Sprint(b.Board.ID))
	tasksDir := filepath.Join(boardDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(boardDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardIndexMarkdown(b, ropt)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}
	for _, col := range b.Columns {
		for _, d := range exported(col.Tasks, ropt) {
			p := filepath.Join(tasksDir, fmt.Sprintf("%d.md", d.Task.ID))
			md := RenderTaskMarkdown(d, b.Board, col.List, b.Users, ropt)
			if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
				return WriteResult{Written: written}, err
			}
			written = append(written, p)
		}
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
