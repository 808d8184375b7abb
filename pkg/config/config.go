// Package config loads the optional perimeter.yml file found at a workspace
// root.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/praetorian-inc/perimeter/pkg/parser"
)

// FileName is the config file looked up at the workspace root.
const FileName = "perimeter.yml"

// Kinds narrows the reported diagnostic kinds with regular expressions.
type Kinds struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Config is the file-level configuration. Zero values mean "use the default";
// command-line flags override whatever is set here.
type Config struct {
	Workers      int      `yaml:"workers"`
	ContextLines *int     `yaml:"context_lines"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	Packages     []string `yaml:"packages"`
	IgnoreVCS    *bool    `yaml:"ignore_vcs"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	Kinds        Kinds    `yaml:"kinds"`
	Parser       string   `yaml:"parser"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	contextLines := 2
	ignoreVCS := true
	return &Config{
		ContextLines: &contextLines,
		IgnoreVCS:    &ignoreVCS,
	}
}

// Parse decodes YAML config bytes on top of the defaults. Unknown keys are
// rejected so typos surface instead of being silently ignored.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file decodes to io.EOF
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields the defaults when optional is set.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadForRoot loads the perimeter.yml at root if there is one.
func LoadForRoot(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName), true)
}

// Validate rejects values no check could run with.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.ContextLines != nil && *c.ContextLines < 0 {
		return fmt.Errorf("context_lines must be >= 0, got %d", *c.ContextLines)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0, got %d", c.MaxFileSize)
	}
	if c.Parser != "" && !slices.Contains(parser.Names, c.Parser) {
		return fmt.Errorf("unknown parser %q (want builtin or tree-sitter)", c.Parser)
	}
	for _, pattern := range append(append([]string{}, c.Kinds.Include...), c.Kinds.Exclude...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid kind pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// VCSIgnore reports whether VCS ignore rules apply.
func (c *Config) VCSIgnore() bool {
	return c.IgnoreVCS == nil || *c.IgnoreVCS
}

// Context returns the configured snippet context, or the default.
func (c *Config) Context() int {
	if c.ContextLines == nil {
		return 2
	}
	return *c.ContextLines
}
