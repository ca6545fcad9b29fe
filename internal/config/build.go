package config

import (
	"go.uber.org/zap"

	"github.com/dshills/docstorm/internal/config/watcher"
	"github.com/dshills/docstorm/internal/engine"
	"github.com/dshills/docstorm/internal/engine/mark"
	"github.com/dshills/docstorm/internal/engine/schema"
	"github.com/dshills/docstorm/internal/plugin/lua"
)

// Formats returns the default mark formats plus the configured ones. A
// configured format with the identity of a default one replaces it.
func (c *Config) Formats() *mark.Formats {
	f := mark.DefaultFormats()
	for _, m := range c.Marks {
		f.Add(mark.Format{
			Name:               m.Name,
			Tag:                m.Tag,
			Attributes:         m.Attributes,
			Styles:             m.Styles,
			MergeLevel:         m.MergeLevel,
			CombineValueByWrap: m.CombineValueByWrap,
		})
	}
	return f
}

// LuaOptions returns the options for the Lua state evaluating rule
// predicates.
func (c *Config) LuaOptions() []lua.StateOption {
	return []lua.StateOption{lua.WithExecutionTimeout(c.Schema.LuaTimeout)}
}

// NewSchema builds the schema registry: the default rules when Builtin is
// set, then every rule file in order. Lua predicate values compile on
// state.
func (c *Config) NewSchema(state *lua.State, log *zap.Logger) (*schema.Registry, error) {
	var reg *schema.Registry
	if c.Schema.Builtin {
		reg = schema.NewDefaultRegistry(schema.WithLogger(log))
	} else {
		reg = schema.NewRegistry(schema.WithLogger(log))
	}

	ld := schema.NewLoader(reg, state)
	for _, f := range c.Schema.Files {
		if err := ld.LoadFile(f); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// WatchSchema reloads each rule file into reg when it changes. Reloaded
// rules are merged into the registry, so rules are only ever added. The
// caller closes the returned watcher.
func (c *Config) WatchSchema(reg *schema.Registry, state *lua.State, log *zap.Logger) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.WithLogger(log))
	if err != nil {
		return nil, err
	}
	ld := schema.NewLoader(reg, state)
	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			return
		}
		if err := ld.LoadFile(ev.Path); err != nil {
			log.Warn("rule file reload failed", zap.String("path", ev.Path), zap.Error(err))
			return
		}
		log.Info("rule file reloaded", zap.String("path", ev.Path), zap.Int("rules", reg.Len()))
	})
	for _, f := range c.Schema.Files {
		if err := w.Watch(f); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	return w, nil
}

// EngineOptions returns the engine options for the history, tracking,
// template and mark settings.
func (c *Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithFormats(c.Formats()),
		engine.WithMaxUndoEntries(c.History.MaxEntries),
		engine.WithMaxRecords(c.Tracking.MaxRecords),
		engine.WithTemplateTTL(c.Templates.TTL),
	}
}
