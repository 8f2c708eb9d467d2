package main

import (
	"fmt"

	"github.com/harrisonrobin/taskbox/pkg/filter"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/spf13/pflag"
)

// taskFlags are the task fields settable from the command line, shared by
// add and edit.
type taskFlags struct {
	title       string
	description string
	priority    string
	category    string
	due         string
	noDue       bool
	favorite    bool
}

func (f *taskFlags) register(fs *pflag.FlagSet, edit bool) {
	fs.StringVarP(&f.description, "description", "d", "", "Task description")
	fs.StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium or high")
	fs.StringVarP(&f.category, "category", "c", "", "Category")
	fs.StringVar(&f.due, "due", "", "Due date (YYYY-MM-DD)")
	fs.BoolVar(&f.favorite, "favorite", false, "Mark as favorite")
	if edit {
		fs.StringVarP(&f.title, "title", "t", "", "New title")
		fs.BoolVar(&f.noDue, "no-due", false, "Remove the due date")
	}
}

func (f *taskFlags) draft(title string) (model.Draft, error) {
	d := model.Draft{
		Title:       title,
		Description: f.description,
		Category:    f.category,
		Favorite:    f.favorite,
	}
	p, err := model.ParsePriority(f.priority)
	if err != nil {
		return d, err
	}
	d.Priority = p
	if f.due != "" {
		due, err := model.ParseDate(f.due)
		if err != nil {
			return d, err
		}
		d.DueDate = &due
	}
	return d, nil
}

// patch includes only the flags given on the command line.
func (f *taskFlags) patch(fs *pflag.FlagSet) (model.Patch, error) {
	var p model.Patch
	if fs.Changed("title") {
		p.Title = &f.title
	}
	if fs.Changed("description") {
		p.Description = &f.description
	}
	if fs.Changed("category") {
		p.Category = &f.category
	}
	if fs.Changed("favorite") {
		p.Favorite = &f.favorite
	}
	if fs.Changed("priority") {
		prio, err := model.ParsePriority(f.priority)
		if err != nil {
			return p, err
		}
		if prio == "" {
			return p, fmt.Errorf("%w: priority cannot be empty", model.ErrInvalidTask)
		}
		p.Priority = &prio
	}
	switch {
	case f.noDue && fs.Changed("due"):
		return p, fmt.Errorf("--due and --no-due are mutually exclusive")
	case f.noDue:
		p.DueDate = &model.Date{}
	case fs.Changed("due"):
		due, err := model.ParseDate(f.due)
		if err != nil {
			return p, err
		}
		p.DueDate = &due
	}
	return p, nil
}

type filterFlags struct {
	search        string
	category      string
	priority      string
	hideCompleted bool
	favorites     bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.search, "search", "s", "", "Only tasks whose title, description or category contains this text")
	fs.StringVarP(&f.category, "category", "c", "", "Only tasks in this category")
	fs.StringVarP(&f.priority, "priority", "p", "", "Only tasks with this priority")
	fs.BoolVar(&f.hideCompleted, "hide-completed", false, "Hide completed tasks")
	fs.BoolVarP(&f.favorites, "favorites", "f", false, "Only favorite tasks")
}

func (f *filterFlags) patch() (filter.CriteriaPatch, error) {
	prio, err := model.ParsePriority(f.priority)
	if err != nil {
		return filter.CriteriaPatch{}, err
	}
	showCompleted := !f.hideCompleted
	return filter.CriteriaPatch{
		Search:        &f.search,
		Category:      &f.category,
		Priority:      &prio,
		ShowCompleted: &showCompleted,
		ShowFavorites: &f.favorites,
	}, nil
}
