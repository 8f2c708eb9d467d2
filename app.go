package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/taskbox/pkg/api"
	"github.com/harrisonrobin/taskbox/pkg/auth"
	"github.com/harrisonrobin/taskbox/pkg/config"
	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/google"
	"github.com/harrisonrobin/taskbox/pkg/index"
	"github.com/harrisonrobin/taskbox/pkg/logging"
	"github.com/harrisonrobin/taskbox/pkg/snapshot"
	"github.com/harrisonrobin/taskbox/pkg/store"
	"github.com/spf13/cobra"
)

// app carries what every command needs: the resolved configuration, the
// logger and the config directory.
type app struct {
	flags struct {
		backend  string
		taskList string
		apiURL   string
		logLevel string
	}

	out    io.Writer
	dir    string
	cfg    *config.Config
	logger *logging.Logger
	now    func() time.Time
}

// setup resolves the configuration. Flags win over the config file, which
// wins over the defaults.
func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	if a.now == nil {
		a.now = time.Now
	}

	dir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("could not find configuration directory: %w", err)
	}
	a.dir = dir

	cfg, err := config.Load(a.configPath())
	if err != nil {
		return err
	}
	overrides := []struct {
		flag, key string
		value     string
	}{
		{"backend", "backend", a.flags.backend},
		{"task-list", "task_list", a.flags.taskList},
		{"api-url", "api_url", a.flags.apiURL},
		{"log-level", "log_level", a.flags.logLevel},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		if err := cfg.Set(o.key, o.value); err != nil {
			return fmt.Errorf("--%s: %w", o.flag, err)
		}
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		a.logger.Close()
	}
}

func (a *app) configPath() string {
	return filepath.Join(a.dir, "config.json")
}

func (a *app) session() (*auth.Session, error) {
	return auth.OpenSession(filepath.Join(a.dir, auth.TokenFile))
}

func (a *app) gateway(ctx context.Context, session *auth.Session) (gateway.Gateway, error) {
	switch a.cfg.Backend {
	case config.BackendGoogle:
		oauthCfg, err := auth.GetConfig(filepath.Join(a.dir, auth.ClientSecretsFile), a.logger.Logger, auth.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w (download credentials.json to %s and run 'taskbox auth google')", err, a.dir)
		}
		idx, err := index.Open(a.dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open task index: %w", err)
		}
		httpClient := auth.GoogleClient(ctx, oauthCfg, session, a.logger.Logger)
		return google.NewClient(ctx, httpClient, a.cfg.TaskList, idx, session.IsAuthenticated().Get)
	default:
		return api.NewClient(a.cfg.APIURL, session, nil, a.logger.Logger), nil
	}
}

func (a *app) snapshot() (snapshot.Store, error) {
	if a.cfg.Snapshot == config.SnapshotSQLite {
		return snapshot.OpenSQLite(a.dir)
	}
	return snapshot.NewFileStore(a.dir), nil
}

// openStore builds the store for the configured backend and loads it. The
// caller closes it.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	gw, err := a.gateway(ctx, session)
	if err != nil {
		return nil, err
	}
	snap, err := a.snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to open local snapshot: %w", err)
	}

	st := store.New(gw, snap, a.logger.Logger)
	source, err := st.Load(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	if source != store.SourceRemote {
		a.logger.Info("showing tasks without the remote service", "source", source)
	}
	return st, nil
}

// withStore runs fn against a loaded store and closes it afterwards.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}
