package orgmode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

const sample = `#+TITLE: Inbox
* TODO [#A] Pay rent :home:finance:
  DEADLINE: <2024-05-31 Fri>
  :PROPERTIES:
  :ID: 1234
  :END:
  Transfer before noon.
* Notes
  not a task
** DONE Book flights :travel:
   CLOSED: [2024-04-02 Tue 10:00]
* TODO [#C] Water plants
* TODO Call the bank
  DEADLINE: <2024-06-01 Sat 09:00>
`

func TestParse(t *testing.T) {
	drafts, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(drafts) != 4 {
		t.Fatalf("Expected 4 drafts, got %d: %+v", len(drafts), drafts)
	}

	rent := drafts[0]
	if rent.Title != "Pay rent" || rent.Priority != model.PriorityHigh || rent.Category != "home" {
		t.Errorf("Unexpected first draft: %+v", rent)
	}
	if rent.DueDate == nil || rent.DueDate.String() != "2024-05-31" {
		t.Errorf("Expected deadline 2024-05-31, got %v", rent.DueDate)
	}
	if rent.Description != "Transfer before noon." {
		t.Errorf("Expected body as description, got %q", rent.Description)
	}

	flights := drafts[1]
	if !flights.Completed || flights.Category != "travel" || flights.Priority != model.PriorityMedium {
		t.Errorf("Unexpected DONE draft: %+v", flights)
	}
	if flights.Description != "" {
		t.Errorf("Expected CLOSED line skipped, got %q", flights.Description)
	}

	if drafts[2].Priority != model.PriorityLow || drafts[2].Category != "" {
		t.Errorf("Unexpected third draft: %+v", drafts[2])
	}
	if drafts[3].DueDate == nil || drafts[3].DueDate.String() != "2024-06-01" {
		t.Errorf("Expected deadline with time to parse, got %v", drafts[3].DueDate)
	}
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.org")
	b := filepath.Join(dir, "b.org")
	os.WriteFile(a, []byte("* TODO First\n"), 0600)
	os.WriteFile(b, []byte("* TODO Second\n"), 0600)

	drafts, err := ParseFiles([]string{a, b})
	if err != nil {
		t.Fatalf("ParseFiles failed: %v", err)
	}
	if len(drafts) != 2 || drafts[0].Title != "First" || drafts[1].Title != "Second" {
		t.Errorf("Unexpected drafts: %+v", drafts)
	}

	if _, err := ParseFiles([]string{filepath.Join(dir, "missing.org")}); err == nil {
		t.Error("Expected error for missing file")
	}
}
