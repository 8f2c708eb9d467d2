package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrisonrobin/taskbox/pkg/model"
	"github.com/harrisonrobin/taskbox/pkg/orgmode"
	"github.com/harrisonrobin/taskbox/pkg/store"
	"github.com/harrisonrobin/taskbox/pkg/taskwarrior"
	"github.com/spf13/cobra"
)

const (
	formatOrg         = "org"
	formatTaskwarrior = "taskwarrior"
)

func importCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Create tasks from Org-mode files or a Taskwarrior export",
		Long: `Create tasks from Org-mode files or Taskwarrior JSON exports.

The format is guessed from the file extension unless --format is given.
Without files and with --format taskwarrior, 'task export' is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := readDrafts(cmd.Context(), format, args)
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Fprintln(a.out, "Nothing to import.")
				return nil
			}
			return a.withStore(cmd, func(ctx context.Context, st *store.Store) error {
				var failed int
				for _, d := range drafts {
					if _, err := st.Add(ctx, d); err != nil {
						failed++
						a.logger.Warn("import failed", "title", d.Title, "error", err)
						fmt.Fprintf(cmd.ErrOrStderr(), "could not import %q: %v\n", d.Title, err)
					}
				}
				fmt.Fprintf(a.out, "Imported %d of %d tasks\n", len(drafts)-failed, len(drafts))
				if failed > 0 {
					return fmt.Errorf("%d tasks were not imported", failed)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Input format: org or taskwarrior")
	return cmd
}

func readDrafts(ctx context.Context, format string, files []string) ([]model.Draft, error) {
	if format == "" {
		if len(files) == 0 {
			return nil, fmt.Errorf("give at least one file, or --format taskwarrior to read 'task export'")
		}
		format = formatTaskwarrior
		if strings.EqualFold(filepath.Ext(files[0]), ".org") {
			format = formatOrg
		}
	}

	switch format {
	case formatOrg:
		if len(files) == 0 {
			return nil, fmt.Errorf("org import needs at least one file")
		}
		return orgmode.ParseFiles(files)
	case formatTaskwarrior:
		client := taskwarrior.NewClient()
		var tasks []taskwarrior.Task
		if len(files) == 0 {
			if ctx == nil {
				ctx = context.Background()
			}
			exported, err := client.GetTasks(ctx, nil)
			if err != nil {
				return nil, err
			}
			tasks = exported
		}
		for _, path := range files {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			parsed, err := client.ParseTasks(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			tasks = append(tasks, parsed...)
		}
		var drafts []model.Draft
		for _, t := range tasks {
			if d, ok := taskwarrior.ToDraft(t, nil); ok {
				drafts = append(drafts, d)
			}
		}
		return drafts, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s or %s)", format, formatOrg, formatTaskwarrior)
	}
}
