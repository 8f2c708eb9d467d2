package overdue

import (
	"os"
	"testing"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

func due(y int, m time.Month, d int) *model.Date {
	date := model.NewDate(y, m, d)
	return &date
}

func TestList(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "a", Title: "later", DueDate: due(2024, 5, 20)},
		{ID: "b", Title: "late", DueDate: due(2024, 5, 8)},
		{ID: "c", Title: "later still late", DueDate: due(2024, 5, 1)},
		{ID: "d", Title: "done", DueDate: due(2024, 5, 1), Completed: true},
		{ID: "e", Title: "no date"},
	}
	got := List(tasks, now)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("Expected [c b], got %+v", got)
	}
}

func TestSweepReportsOnce(t *testing.T) {
	dir := t.TempDir()
	table, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	tasks := []model.Task{
		{ID: "a", Title: "pay rent", DueDate: due(2024, 5, 11)},
		{ID: "b", Title: "call mum", DueDate: due(2024, 5, 12)},
		{ID: "c", Title: "finished", DueDate: due(2024, 5, 11)},
	}
	day1 := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	if swept := table.Sweep(tasks, day1); len(swept) != 0 {
		t.Fatalf("Nothing is overdue yet, got %+v", swept)
	}
	if err := table.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(reloaded.Entries) != 3 {
		t.Fatalf("Expected 3 tracked tasks, got %d", len(reloaded.Entries))
	}

	tasks[2].Completed = true
	day3 := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	swept := reloaded.Sweep(tasks, day3)
	if len(swept) != 1 || swept[0].ID != "a" {
		t.Errorf("Expected only a to be swept, got %+v", swept)
	}
	if _, ok := reloaded.Entries["b"]; !ok {
		t.Error("Expected b still tracked")
	}
	if _, ok := reloaded.Entries["c"]; ok {
		t.Error("Expected completed task dropped")
	}

	if swept := reloaded.Sweep(tasks, day3); len(swept) != 0 {
		t.Errorf("Expected nothing on second sweep, got %+v", swept)
	}
}

func TestSaveSkipsCleanTable(t *testing.T) {
	table, _ := Open(t.TempDir())
	if err := table.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(table.Path); !os.IsNotExist(err) {
		t.Errorf("Expected no file for a clean table, got %v", err)
	}
}
