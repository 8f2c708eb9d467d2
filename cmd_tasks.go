package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harrisonrobin/taskbox/pkg/colors"
	"github.com/harrisonrobin/taskbox/pkg/filter"
	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/overdue"
	"github.com/harrisonrobin/taskbox/pkg/store"
	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var ff filterFlags
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := ff.patch()
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				holder := filter.NewHolder()
				view := filter.NewView(st.Observe(), holder.Observe())
				defer view.Close()
				holder.Update(patch)
				tasks := view.Current()

				if asJSON {
					enc := json.NewEncoder(a.out)
					enc.SetIndent("", "  ")
					if tasks == nil {
						tasks = []model.Task{}
					}
					return enc.Encode(tasks)
				}

				cache, err := colors.Open(a.dir)
				if err != nil {
					a.logger.Warn("could not load category colours", "error", err)
					cache = nil
				}
				renderer{colors: cache, now: a.now()}.list(a.out, tasks)
				if cache != nil {
					if err := cache.Save(); err != nil {
						a.logger.Warn("could not save category colours", "error", err)
					}
				}
				return nil
			})
		},
	}
	ff.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tasks as JSON")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := tf.draft(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				task, err := st.Add(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Created task %s: %s\n", shortID(task.ID), task.Title)
				return nil
			})
		},
	}
	tf.register(cmd.Flags(), false)
	return cmd
}

func editCmd(a *app) *cobra.Command {
	var tf taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := tf.patch(cmd.Flags())
			if err != nil {
				return err
			}
			if patch.Empty() {
				return fmt.Errorf("nothing to change; pass at least one field flag")
			}
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				target, err := st.Resolve(args[0])
				if err != nil {
					return err
				}
				task, err := st.Update(ctx, target.ID, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Updated task %s: %s\n", shortID(task.ID), task.Title)
				return nil
			})
		},
	}
	tf.register(cmd.Flags(), true)
	return cmd
}

func doneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle whether a task is completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				target, err := st.Resolve(args[0])
				if err != nil {
					return err
				}
				task, err := st.ToggleCompleted(ctx, target.ID)
				if err != nil {
					return err
				}
				state := "open"
				if task.Completed {
					state = "completed"
				}
				fmt.Fprintf(a.out, "Task %s is now %s\n", shortID(task.ID), state)
				return nil
			})
		},
	}
}

func favCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fav <id>",
		Short: "Toggle whether a task is a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				target, err := st.Resolve(args[0])
				if err != nil {
					return err
				}
				task, err := st.ToggleFavorite(ctx, target.ID)
				if err != nil {
					return err
				}
				if task.Favorite {
					fmt.Fprintf(a.out, "Task %s marked as favorite\n", shortID(task.ID))
				} else {
					fmt.Fprintf(a.out, "Task %s is no longer a favorite\n", shortID(task.ID))
				}
				return nil
			})
		},
	}
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				target, err := st.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := st.Delete(ctx, target.ID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted task %s: %s\n", shortID(target.ID), target.Title)
				return nil
			})
		},
	}
}

func categoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the categories in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				for _, c := range st.Categories() {
					fmt.Fprintln(a.out, c)
				}
				return nil
			})
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				renderStats(a.out, st.Stats(a.now()))
				return nil
			})
		},
	}
}

func overdueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List open tasks past their due date",
		Long: `List open tasks past their due date, most overdue first.
Tasks that became overdue since the previous run are marked as new.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				now := a.now()
				tasks := st.Tasks()

				fresh := make(map[string]bool)
				table, err := overdue.Open(a.dir)
				if err != nil {
					a.logger.Warn("could not load overdue table", "error", err)
				} else {
					for _, t := range table.Sweep(tasks, now) {
						fresh[t.ID] = true
					}
					if err := table.Save(); err != nil {
						a.logger.Warn("could not save overdue table", "error", err)
					}
				}

				late := overdue.List(tasks, now)
				if len(late) == 0 {
					fmt.Fprintln(a.out, "Nothing is overdue.")
					return nil
				}
				r := renderer{now: now}
				for _, t := range late {
					line := r.row(t)
					if fresh[t.ID] {
						line += " " + overdueStyle.Render("NEW")
					}
					fmt.Fprintln(a.out, line)
				}
				return nil
			})
		},
	}
}
