// Package config loads slack-export settings: built-in defaults, then an
// optional TOML file in the work directory, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matillion/slack-export/internal/export"
	slackclient "github.com/matillion/slack-export/internal/slack"
)

// FileName is the name of the optional config file inside the work directory.
const FileName = "config.toml"

// Config holds everything the binary needs to talk to Slack and run exports.
type Config struct {
	Token    string `toml:"token" validate:"required"`
	Cookie   string `toml:"cookie"`
	APIURL   string `toml:"api_url" validate:"omitempty,url"`
	LogLevel string `toml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// WorkDir is where the config file lives; LogDir and ExportDir default
	// to subdirectories of it.
	WorkDir   string `toml:"-" validate:"required"`
	LogDir    string `toml:"log_dir" validate:"required"`
	ExportDir string `toml:"export_dir" validate:"required"`

	Export ExportConfig `toml:"export"`
}

// ExportConfig tunes the export pipeline.
type ExportConfig struct {
	PageSize          int           `toml:"page_size" validate:"min=1,max=1000"`
	ReplyLimit        int           `toml:"reply_limit" validate:"min=1,max=1000"`
	ReplyInterval     time.Duration `toml:"reply_interval" validate:"gt=0"`
	DefaultRetryAfter time.Duration `toml:"default_retry_after" validate:"gt=0"`
	ProgressEvery     int           `toml:"progress_every" validate:"min=1"`
	NotifyTimeout     time.Duration `toml:"notify_timeout" validate:"gt=0"`
}

// Default returns the built-in settings rooted at workDir.
func Default(workDir string) *Config {
	opts := export.DefaultOptions()
	return &Config{
		LogLevel:  "info",
		WorkDir:   workDir,
		LogDir:    filepath.Join(workDir, "logs"),
		ExportDir: filepath.Join(workDir, "exports"),
		Export: ExportConfig{
			PageSize:          opts.PageSize,
			ReplyLimit:        opts.ReplyLimit,
			ReplyInterval:     opts.ReplyInterval,
			DefaultRetryAfter: opts.DefaultRetryAfter,
			ProgressEvery:     opts.ProgressEvery,
			NotifyTimeout:     opts.NotifyTimeout,
		},
	}
}

// DefaultWorkDir returns ~/.claude/servers/slack-export.
func DefaultWorkDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude", "servers", "slack-export"), nil
}

// Load builds the configuration for workDir. A missing config file is not an
// error; a malformed one is.
func Load(workDir string) (*Config, error) {
	cfg := Default(workDir)

	path := filepath.Join(workDir, FileName)
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep their
// current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnvOverrides applies SLACK_TOKEN, SLACK_COOKIE, LOG_LEVEL and
// SLACK_EXPORT_DIR when they are set.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SLACK_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("SLACK_COOKIE"); v != "" {
		c.Cookie = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("SLACK_EXPORT_DIR"); v != "" {
		c.ExportDir = v
	}
}

// Validate reports the first invalid field by its config file key.
func (c *Config) Validate() error {
	err := validate().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" && fe.Field() == "token" {
			return errors.New("slack token is required: set SLACK_TOKEN or token in " + FileName)
		}
		return fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return err
}

// SlackConfig returns the settings for the Slack client.
func (c *Config) SlackConfig() slackclient.Config {
	return slackclient.Config{
		Token:  c.Token,
		Cookie: c.Cookie,
		APIURL: c.APIURL,
	}
}

// ExportOptions returns the settings for the exporter.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		PageSize:          c.Export.PageSize,
		ReplyLimit:        c.Export.ReplyLimit,
		ReplyInterval:     c.Export.ReplyInterval,
		DefaultRetryAfter: c.Export.DefaultRetryAfter,
		ProgressEvery:     c.Export.ProgressEvery,
		NotifyTimeout:     c.Export.NotifyTimeout,
	}
}

var (
	validateOnce sync.Once
	validateInst *validator.Validate
)

// validate returns the shared validator, reporting fields by their toml keys.
func validate() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("toml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		validateInst = v
	})
	return validateInst
}
