package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"teamboard-cli/internal/model"
	"teamboard-cli/internal/pages"
)

func sampleBoard() *pages.Board {
	now := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	mia := model.User{ID: 2, Username: "mia", FullName: "Mia Member"}
	assignee := mia.ID
	return &pages.Board{
		Board: model.Board{ID: 7, Name: "Sprint 12", Description: "Two week sprint."},
		Users: []model.User{mia},
		Columns: []pages.Column{
			{
				List: model.List{ID: 1, BoardID: 7, Name: "Todo"},
				Tasks: []pages.TaskDetail{{
					Task: model.Task{ID: 41, ListID: 1, Title: "Hello", Description: "Some **markdown**.", Status: model.TaskTodo, Priority: model.PriorityHigh, AssigneeID: &assignee, CreatedAt: now, UpdatedAt: now},
					Comments: []model.Comment{
						{ID: 1, TaskID: 41, Author: mia, Body: "Comment body", CreatedAt: now.Add(time.Hour)},
					},
					Activities: []model.Activity{
						{ID: 1, TaskID: 41, Actor: mia, Action: "created", CreatedAt: now},
					},
				}},
			},
			{
				List: model.List{ID: 2, BoardID: 7, Name: "Done"},
				Tasks: []pages.TaskDetail{{
					Task: model.Task{ID: 42, ListID: 2, Title: "Shipped", Status: model.TaskDone, CreatedAt: now, UpdatedAt: now},
				}},
			},
		},
	}
}

func TestRenderTaskMarkdown_IncludesDescriptionAndComments(t *testing.T) {
	t.Parallel()

	b := sampleBoard()
	col := b.Columns[0]
	md := RenderTaskMarkdown(col.Tasks[0], b.Board, col.List, b.Users, RenderOptions{})

	for _, want := range []string{"# Hello", "- Board: Sprint 12 (7)", "- Status: To Do", "- Priority: High", "- Assignee: Mia Member", "## Description", "Some **markdown**.", "## Comments", "Comment body"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Activity") {
		t.Fatalf("activity should be opt-in, got:\n%s", md)
	}

	md = RenderTaskMarkdown(col.Tasks[0], b.Board, col.List, b.Users, RenderOptions{IncludeActivity: true})
	if !strings.Contains(md, "## Activity") || !strings.Contains(md, "Mia Member created") {
		t.Fatalf("expected activity section, got:\n%s", md)
	}
}

func TestRenderBoardIndexMarkdown_SkipsDoneByDefault(t *testing.T) {
	t.Parallel()

	md := RenderBoardIndexMarkdown(sampleBoard(), RenderOptions{})
	if !strings.Contains(md, "- [Hello](tasks/41.md) (To Do) @Mia Member") {
		t.Fatalf("expected task link, got:\n%s", md)
	}
	if strings.Contains(md, "Shipped") || !strings.Contains(md, "## Done (0)") {
		t.Fatalf("done tasks should be left out, got:\n%s", md)
	}

	md = RenderBoardIndexMarkdown(sampleBoard(), RenderOptions{IncludeDone: true})
	if !strings.Contains(md, "[Shipped](tasks/42.md)") {
		t.Fatalf("expected done task with IncludeDone, got:\n%s", md)
	}
}

func TestWriteBoard_WritesIndexAndTasks(t *testing.T) {
	t.Parallel()

	to := t.TempDir()
	res, err := WriteBoard(sampleBoard(), to, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteBoard: %v", err)
	}
	if len(res.Written) != 2 {
		t.Fatalf("expected index and one task; got %v", res.Written)
	}
	if _, err := os.Stat(filepath.Join(to, "boards", "7", "index.md")); err != nil {
		t.Fatalf("stat index.md: %v", err)
	}
	if _, err := os.Stat(filepath.Join(to, "boards", "7", "tasks", "41.md")); err != nil {
		t.Fatalf("stat 41.md: %v", err)
	}

	if _, err := WriteBoard(sampleBoard(), to, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "use --overwrite") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if _, err := WriteBoard(sampleBoard(), to, WriteOptions{Overwrite: true, IncludeDone: true}); err != nil {
		t.Fatalf("WriteBoard overwrite: %v", err)
	}
}

func TestWriteBoard_RequiresDestination(t *testing.T) {
	t.Parallel()

	if _, err := WriteBoard(sampleBoard(), "  ", WriteOptions{}); err == nil {
		t.Fatal("expected error for empty destination")
	}
	if _, err := WriteBoard(nil, t.TempDir(), WriteOptions{}); err == nil {
		t.Fatal("expected error for nil board")
	}
}
