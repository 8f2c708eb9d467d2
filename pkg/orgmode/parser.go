// Package orgmode imports TODO headlines from Org-mode files as task drafts.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/taskbox/pkg/model"
)

var (
	headlineRegex = regexp.MustCompile(`^\*+\s+(TODO|DONE)\b\s*(?:\[#([A-Za-z])\])?\s*(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	otherHeadline = regexp.MustCompile(`^\*+\s`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	plainingRegex = regexp.MustCompile(`^(SCHEDULED|CLOSED|DEADLINE):`)
)

// parseFile parses an Org-mode file and returns its drafts.
func parseFile(filePath string) ([]model.Draft, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// ParseFiles parses multiple Org-mode files and returns their drafts in
// file order.
func ParseFiles(filePaths []string) ([]model.Draft, error) {
	var all []model.Draft
	for _, filePath := range filePaths {
		drafts, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		all = append(all, drafts...)
	}
	return all, nil
}

// Parse reads TODO and DONE headlines of any level. [#A], [#B] and [#C]
// map to high, medium and low priority, the first tag becomes the
// category and DEADLINE the due date. Body text outside drawers becomes
// the description.
func Parse(r io.Reader) ([]model.Draft, error) {
	scanner := bufio.NewScanner(r)
	var drafts []model.Draft
	var current *model.Draft
	var body []string
	inDrawer := false

	flush := func() {
		if current != nil && strings.TrimSpace(current.Title) != "" {
			current.Description = strings.TrimSpace(strings.Join(body, "\n"))
			drafts = append(drafts, *current)
		}
		current = nil
		body = nil
		inDrawer = false
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if matches := headlineRegex.FindStringSubmatch(raw); matches != nil {
			flush()
			current = &model.Draft{
				Title:     strings.TrimSpace(matches[3]),
				Completed: matches[1] == "DONE",
				Priority:  priority(matches[2]),
			}
			if tags := strings.Split(strings.Trim(matches[4], ":"), ":"); tags[0] != "" {
				current.Category = tags[0]
			}
			continue
		}
		if otherHeadline.MatchString(raw) {
			flush()
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case inDrawer:
			if line == ":END:" {
				inDrawer = false
			}
		case strings.HasPrefix(line, ":") && strings.HasSuffix(line, ":") && len(line) > 1:
			inDrawer = true
		case plainingRegex.MatchString(line) || strings.Contains(line, "DEADLINE:"):
			if matches := deadlineRegex.FindStringSubmatch(line); matches != nil {
				if due, err := model.ParseDate(matches[1]); err == nil {
					current.DueDate = &due
				}
			}
		default:
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return drafts, nil
}

func priority(cookie string) model.Priority {
	switch strings.ToUpper(cookie) {
	case "A":
		return model.PriorityHigh
	case "C":
		return model.PriorityLow
	}
	return model.PriorityMedium
}
