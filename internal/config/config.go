// Package config provides configuration management for svgsprite using
// Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration system supports YAML files, environment variable
// overrides with the SVGSPRITE_ prefix and validation. Every path in the
// loaded Config is absolute: cwd is resolved against the process working
// directory and all other paths are resolved against cwd.
package config

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/conneroisu/svgsprite/internal/collect"
	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/spf13/viper"
)

// Defaults applied when a key is not set.
const (
	DefaultSrc            = "./src/assets/icons"
	DefaultDest           = "./src/components/Icon"
	DefaultNamesFilename  = "names.js"
	DefaultReadmeFilename = "README.md"
	DefaultPackage        = "icons"
	DefaultThumbnailSize  = 64
	DefaultDebounce       = 300 * time.Millisecond
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	maxDefaultConcurrency = 8
)

// Config is the build configuration for one invocation. It is read-only
// once Load returns.
type Config struct {
	Cwd             string          `mapstructure:"cwd" yaml:"cwd" json:"cwd"`
	Src             string          `mapstructure:"src" yaml:"src" json:"src"`
	Dest            string          `mapstructure:"dest" yaml:"dest" json:"dest"`
	NamesFilename   string          `mapstructure:"names_filename" yaml:"names_filename" json:"names_filename"`
	ReadmeFilename  string          `mapstructure:"readme_filename" yaml:"readme_filename" json:"readme_filename"`
	DocPath         string          `mapstructure:"doc_path" yaml:"doc_path,omitempty" json:"doc_path,omitempty"`
	PrependReadme   string          `mapstructure:"prepend_readme" yaml:"prepend_readme,omitempty" json:"prepend_readme,omitempty"`
	ExcludePatterns []string        `mapstructure:"exclude_patterns" yaml:"exclude_patterns" json:"exclude_patterns"`
	Emit            EmitConfig      `mapstructure:"emit" yaml:"emit" json:"emit"`
	Manifest        ManifestConfig  `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
	Thumbnail       ThumbnailConfig `mapstructure:"thumbnail" yaml:"thumbnail" json:"thumbnail"`
	Concurrency     int             `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	Watch           WatchConfig     `mapstructure:"watch" yaml:"watch" json:"watch"`
	Serve           ServeConfig     `mapstructure:"serve" yaml:"serve" json:"serve"`

	// Warnings collects non-fatal validation findings for the caller to log.
	Warnings []ValidationError `mapstructure:"-" yaml:"-" json:"-"`
}

// EmitConfig toggles the individual artifacts.
type EmitConfig struct {
	Sprite   bool `mapstructure:"sprite" yaml:"sprite" json:"sprite"`
	Manifest bool `mapstructure:"manifest" yaml:"manifest" json:"manifest"`
	Readme   bool `mapstructure:"readme" yaml:"readme" json:"readme"`
}

type ManifestConfig struct {
	Package string `mapstructure:"package" yaml:"package" json:"package"`
}

type ThumbnailConfig struct {
	Size int `mapstructure:"size" yaml:"size" json:"size"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce"`
}

type ServeConfig struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
}

// SpritePath is where sprite.svg is written.
func (c *Config) SpritePath() string { return filepath.Join(c.Dest, collect.SpriteName) }

// NamesPath is where the manifest module is written.
func (c *Config) NamesPath() string { return filepath.Join(c.Dest, c.NamesFilename) }

// ReadmePath is where the markdown documentation is written.
func (c *Config) ReadmePath() string { return filepath.Join(c.Dest, c.ReadmeFilename) }

// Keys lists every configuration key.
var Keys = []string{
	"cwd", "src", "dest", "names_filename", "readme_filename", "doc_path",
	"prepend_readme", "exclude_patterns",
	"emit.sprite", "emit.manifest", "emit.readme",
	"manifest.package", "thumbnail.size", "concurrency", "watch.debounce",
	"serve.host", "serve.port",
}

// BindEnv registers every key with viper so environment variables are
// seen by Unmarshal even when no config file mentions the key.
func BindEnv() error {
	for _, key := range Keys {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}
	return nil
}

// Load builds the Config from the global viper instance.
func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, "failed to decode configuration").
			WithContext("cause", err.Error())
	}

	// viper leaves unset slices empty; read them back explicitly so values
	// from env vars (comma separated) are honoured
	if viper.IsSet("exclude_patterns") && len(config.ExcludePatterns) == 0 {
		config.ExcludePatterns = viper.GetStringSlice("exclude_patterns")
	}

	applyDefaults(&config)

	if err := resolvePaths(&config); err != nil {
		return nil, err
	}
	config.ExcludePatterns = effectiveExcludes(&config)

	result := ValidateConfigWithDetails(&config)
	if result.HasErrors() {
		first := result.Errors[0]
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, strings.TrimSpace(result.String())).
			WithContext("field", first.Field)
	}
	config.Warnings = result.Warnings

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Src == "" {
		config.Src = DefaultSrc
	}
	if config.Dest == "" {
		config.Dest = DefaultDest
	}
	if config.NamesFilename == "" {
		config.NamesFilename = DefaultNamesFilename
	}
	if config.ReadmeFilename == "" {
		config.ReadmeFilename = DefaultReadmeFilename
	}

	// Booleans default to true, so zero values cannot be told apart from
	// an explicit false without asking viper
	if !viper.IsSet("emit.sprite") {
		config.Emit.Sprite = true
	}
	if !viper.IsSet("emit.manifest") {
		config.Emit.Manifest = true
	}
	if !viper.IsSet("emit.readme") {
		config.Emit.Readme = true
	}

	if config.Manifest.Package == "" {
		config.Manifest.Package = DefaultPackage
	}
	if config.Thumbnail.Size == 0 {
		config.Thumbnail.Size = DefaultThumbnailSize
	}
	if config.Concurrency == 0 {
		config.Concurrency = DefaultConcurrency()
	}
	if !viper.IsSet("watch.debounce") {
		config.Watch.Debounce = DefaultDebounce
	}
	if config.Serve.Host == "" {
		config.Serve.Host = DefaultHost
	}
	if !viper.IsSet("serve.port") {
		config.Serve.Port = DefaultPort
	}
}

// DefaultConcurrency is the number of CPUs, capped at 8.
func DefaultConcurrency() int {
	return min(runtime.NumCPU(), maxDefaultConcurrency)
}

func resolvePaths(config *Config) error {
	base, err := workingDir()
	if err != nil {
		return errors.NewConfigError(errors.ErrCodePathUnresolvable, "cannot determine working directory").
			WithContext("cause", err.Error())
	}

	config.Cwd = resolveAgainst(base, config.Cwd)
	config.Src = resolveAgainst(config.Cwd, config.Src)
	config.Dest = resolveAgainst(config.Cwd, config.Dest)
	if config.DocPath != "" {
		config.DocPath = resolveAgainst(config.Cwd, config.DocPath)
	}
	if config.PrependReadme != "" {
		config.PrependReadme = resolveAgainst(config.Cwd, config.PrependReadme)
	}
	return nil
}

// workingDir prefers $PWD, which keeps symlinked checkouts intact.
func workingDir() (string, error) {
	if pwd := os.Getenv("PWD"); pwd != "" && filepath.IsAbs(pwd) {
		return pwd, nil
	}
	return os.Getwd()
}

func resolveAgainst(base, p string) string {
	if p == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// effectiveExcludes returns the configured patterns plus the sprite path
// when the destination lies inside the source tree, so a rebuild never
// collects its own output.
func effectiveExcludes(config *Config) []string {
	excludes := make([]string, 0, len(config.ExcludePatterns)+1)
	for _, p := range config.ExcludePatterns {
		p = strings.TrimSpace(p)
		if p != "" {
			excludes = append(excludes, p)
		}
	}

	rel, err := filepath.Rel(config.Src, config.Dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return excludes
	}
	spriteRel := path.Join(filepath.ToSlash(rel), collect.SpriteName)
	if spriteRel == collect.SpriteName {
		return excludes
	}
	for _, p := range excludes {
		if p == spriteRel {
			return excludes
		}
	}
	return append(excludes, spriteRel)
}
