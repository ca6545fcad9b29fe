package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/config"
	"github.com/dshills/docstorm/internal/config/watcher"
	"github.com/dshills/docstorm/internal/engine"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/logging"
	"github.com/dshills/docstorm/internal/plugin/lua"
)

// env is the state shared by the documents one command opens.
type env struct {
	cfg     *config.Config
	log     *zap.Logger
	lua     *lua.State
	schema  *schema.Registry
	watcher *watcher.Watcher
}

// setup loads the configuration and builds the logger and schema. The
// rule files are watched when watch is set and the config asks for it.
func (a *app) setup(cmd *cli.Command, watch bool) (*env, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	log, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return nil, err
	}
	ev := &env{cfg: cfg, log: log}

	if ev.lua, err = lua.NewState(cfg.LuaOptions()...); err != nil {
		ev.Close()
		return nil, err
	}
	if ev.schema, err = cfg.NewSchema(ev.lua, log); err != nil {
		ev.Close()
		return nil, err
	}
	if watch && cfg.Schema.Watch && len(cfg.Schema.Files) > 0 {
		if ev.watcher, err = cfg.WatchSchema(ev.schema, ev.lua, log); err != nil {
			ev.Close()
			return nil, err
		}
	}
	log.Debug("environment ready",
		zap.Int("rules", ev.schema.Len()),
		zap.Strings("ruleFiles", cfg.Schema.Files))
	return ev, nil
}

// open starts a document session holding content.
func (ev *env) open(content string) (*engine.Engine, error) {
	opts := append(ev.cfg.EngineOptions(),
		engine.WithSchema(ev.schema),
		engine.WithLogger(ev.log),
		engine.WithCards(builtinCards()...),
		engine.WithContent(content),
	)
	return engine.New(opts...)
}

// Close releases the watcher and the Lua state and flushes the log.
func (ev *env) Close() {
	if ev.watcher != nil {
		_ = ev.watcher.Close()
	}
	if ev.lua != nil {
		_ = ev.lua.Close()
	}
	_ = ev.log.Sync()
}

// readDoc returns the content of path, or "" for an empty path.
func readDoc(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(data), nil
}
