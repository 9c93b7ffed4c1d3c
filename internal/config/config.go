// Package config holds the server settings and loads them from defaults,
// a TOML or YAML file, and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EnvRepositoryPath = "GITVIEW_REPOSITORY_PATH"
	EnvListen         = "GITVIEW_LISTEN"
)

const (
	DefaultListen        = "127.0.0.1:8080"
	DefaultRevision      = "master"
	DefaultMaxBlobSize   = 1 << 20
	DefaultRepoCacheSize = 8
)

var validThemes = []string{"auto", "light", "dark"}

type Config struct {
	Listen   string `toml:"listen" yaml:"listen"`
	RepoPath string `toml:"repository" yaml:"repository"`
	Revision string `toml:"revision" yaml:"revision"`
	Theme    string `toml:"theme" yaml:"theme"`

	SyntaxHighlight bool `toml:"syntax_highlight" yaml:"syntax_highlight"`
	AutoReload      bool `toml:"auto_reload" yaml:"auto_reload"`

	// MaxBlobSize caps how many bytes of a file the source view reads.
	MaxBlobSize   int64 `toml:"max_blob_size" yaml:"max_blob_size"`
	RepoCacheSize int   `toml:"repo_cache_size" yaml:"repo_cache_size"`

	// AllowedRoots restricts which directories may be opened. Empty allows any.
	AllowedRoots []string `toml:"allowed_roots" yaml:"allowed_roots"`

	Verbose bool `toml:"verbose" yaml:"verbose"`
}

func Default() Config {
	return Config{
		Listen:          DefaultListen,
		Revision:        DefaultRevision,
		Theme:           "auto",
		SyntaxHighlight: true,
		AutoReload:      true,
		MaxBlobSize:     DefaultMaxBlobSize,
		RepoCacheSize:   DefaultRepoCacheSize,
	}
}

// LoadFile overlays the keys present in the file onto cfg. The format is
// picked from the extension: .toml, .yaml or .yml.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with non-empty environment values.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvRepositoryPath)); v != "" {
		cfg.RepoPath = v
	}
	if v := strings.TrimSpace(getenv(EnvListen)); v != "" {
		cfg.Listen = v
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.MaxBlobSize <= 0 {
		errs = append(errs, fmt.Errorf("max_blob_size must be positive, got %d", c.MaxBlobSize))
	}
	if c.RepoCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("repo_cache_size must be positive, got %d", c.RepoCacheSize))
	}
	valid := false
	for _, t := range validThemes {
		if strings.EqualFold(strings.TrimSpace(c.Theme), t) {
			valid = true
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("unknown theme %q (want auto, light or dark)", c.Theme))
	}
	for _, root := range c.AllowedRoots {
		if !filepath.IsAbs(root) {
			errs = append(errs, fmt.Errorf("allowed root %q is not absolute", root))
		}
	}
	return errors.Join(errs...)
}

// RootAllowed reports whether the absolute path abs lies inside one of the
// allowed roots. Symlinks in the roots are resolved; abs is expected to be
// resolved by the caller.
func (c Config) RootAllowed(abs string) bool {
	if len(c.AllowedRoots) == 0 {
		return true
	}
	abs = filepath.Clean(abs)
	for _, root := range c.AllowedRoots {
		root = filepath.Clean(root)
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			root = resolved
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
