package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deixis/bashdisplay/internal/config"
	"github.com/deixis/bashdisplay/internal/logging"
	"github.com/deixis/bashdisplay/internal/report"
	"github.com/deixis/bashdisplay/internal/runner"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// workspace is what every command needs: where cells run, the loaded
// config, a logger and the run history.
type workspace struct {
	Dir     string
	Config  *config.Config
	Logger  *slog.Logger
	Store   report.Store
	History string
	close   func()
}

func (w *workspace) Close() {
	if w.close != nil {
		w.close()
	}
}

func (w *workspace) Runner() *runner.Runner {
	return &runner.Runner{
		Dir:       w.Dir,
		MaxOutput: w.Config.MaxOutputBytes(),
		Logger:    w.Logger,
	}
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining workspace: %w", err)
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	levelName := cfg.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		levelName = flag
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	w := &workspace{
		Dir:    dir,
		Config: cfg,
		Logger: logging.New(level),
	}
	w.Store, w.History, w.close = openStore(cfg)
	return w, nil
}

// openStore builds the run history described by cfg. A nil store means
// history is disabled.
func openStore(cfg *config.Config) (report.Store, string, func()) {
	if cfg.History.Disabled {
		return nil, "disabled", nil
	}
	if cfg.UseRedis() {
		r := cfg.History.Redis
		store := report.NewRedisStore(r.Addr, r.Password, r.DB,
			report.WithPrefix(cfg.RedisPrefix()),
			report.WithTTL(cfg.RedisTTL()),
		)
		return store, "redis " + r.Addr, func() { _ = store.Close() }
	}
	dir := cfg.HistoryDir()
	disk := report.NewDiskStore(afero.NewOsFs(), dir)
	return report.NewLRUStore(cfg.HistorySize(), disk), "disk " + dir, nil
}
