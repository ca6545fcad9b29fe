// Package config loads the Docstorm configuration.
//
// Configuration comes from an optional YAML or TOML file, chosen by
// extension, overlaid with DOCSTORM_* environment variables. References
// of the form ${VAR} inside the file are expanded before parsing. The
// result is validated before use.
//
// A configuration file looks like:
//
//	log:
//	  level: info
//	  file: /var/log/docstorm.log
//	schema:
//	  builtin: true
//	  files: [rules/extra.yaml]
//	  watch: true
//	marks:
//	  - name: highlight
//	    tag: mark
//	    mergeLevel: 20
//	history:
//	  maxEntries: 500
package config

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// EnvPrefix prefixes the environment variables that override settings.
const EnvPrefix = "DOCSTORM_"

// Log levels and formats.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatConsole = "console"
	FormatJSON    = "json"
)

var tagPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Config represents the application configuration.
type Config struct {
	Log       LogConfig      `yaml:"log"`
	Schema    SchemaConfig   `yaml:"schema"`
	Marks     []MarkConfig   `yaml:"marks"`
	History   HistoryConfig  `yaml:"history"`
	Tracking  TrackingConfig `yaml:"tracking"`
	Templates TemplateConfig `yaml:"templates"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      LevelInfo,
			Format:     FormatConsole,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Schema: SchemaConfig{
			Builtin:    true,
			LuaTimeout: 250 * time.Millisecond,
		},
		History:   HistoryConfig{MaxEntries: 500},
		Tracking:  TrackingConfig{MaxRecords: 10000},
		Templates: TemplateConfig{TTL: 10 * time.Minute},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Log),
		validation.Field(&c.Schema),
		validation.Field(&c.Marks),
		validation.Field(&c.History),
		validation.Field(&c.Tracking),
		validation.Field(&c.Templates),
	)
}

// LogConfig holds logging configuration. File enables a rotating log file
// next to the console output; sizes are in megabytes and ages in days.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

// Validate validates the logging configuration.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.Required, validation.In(LevelDebug, LevelInfo, LevelWarn, LevelError)),
		validation.Field(&c.Format, validation.Required, validation.In(FormatConsole, FormatJSON)),
		validation.Field(&c.MaxSize, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAge, validation.Min(0)),
	)
}

// SchemaConfig selects the schema rules. Builtin starts from the default
// rule set; Files are YAML rule files added on top, reloaded on change
// when Watch is set. LuaTimeout bounds one Lua predicate evaluation.
type SchemaConfig struct {
	Builtin    bool          `yaml:"builtin"`
	Files      []string      `yaml:"files"`
	Watch      bool          `yaml:"watch"`
	LuaTimeout time.Duration `yaml:"luaTimeout"`
}

// Validate validates the schema configuration.
func (c SchemaConfig) Validate() error {
	if !c.Builtin && len(c.Files) == 0 {
		return errors.New("schema: builtin is off and no rule files are set")
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.Files, validation.Each(validation.Required)),
		validation.Field(&c.LuaTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

// MarkConfig declares a mark format beyond the defaults.
type MarkConfig struct {
	Name               string   `yaml:"name"`
	Tag                string   `yaml:"tag"`
	Attributes         []string `yaml:"attributes"`
	Styles             []string `yaml:"styles"`
	MergeLevel         int      `yaml:"mergeLevel"`
	CombineValueByWrap bool     `yaml:"combineValueByWrap"`
}

// Validate validates the mark configuration.
func (c MarkConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Tag, validation.Required, validation.Match(tagPattern)),
		validation.Field(&c.MergeLevel, validation.Min(0)),
		validation.Field(&c.Attributes, validation.Each(validation.Required)),
		validation.Field(&c.Styles, validation.Each(validation.Required)),
	)
}

// HistoryConfig holds undo history configuration.
type HistoryConfig struct {
	MaxEntries int `yaml:"maxEntries"`
}

// Validate validates the history configuration.
func (c HistoryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxEntries, validation.Required, validation.Min(1)),
	)
}

// TrackingConfig holds operation log configuration.
type TrackingConfig struct {
	MaxRecords int `yaml:"maxRecords"`
}

// Validate validates the tracking configuration.
func (c TrackingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxRecords, validation.Required, validation.Min(1)),
	)
}

// TemplateConfig holds template cache configuration.
type TemplateConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Validate validates the template cache configuration.
func (c TemplateConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
	)
}
