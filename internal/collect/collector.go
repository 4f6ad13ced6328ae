// Package collect discovers the source icons of a build.
//
// The collector walks a source root on an afero filesystem and lazily yields
// the root-relative, forward-slash path of every *.svg file that is not
// excluded. Ordering is whatever the walk produces; the working set imposes
// the canonical order later.
package collect

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/spf13/afero"
)

const (
	// SpriteName is the generated sprite file, never collected from the root.
	SpriteName = "sprite.svg"
	// ReservedDir holds auxiliary files that are never part of the sprite.
	ReservedDir = "otherFiles"
)

// DefaultExcludes are applied to every collection regardless of configuration.
var DefaultExcludes = []string{SpriteName, ReservedDir + "/**"}

// Collector enumerates candidate icons under a source root.
type Collector struct {
	fs       afero.Fs
	root     string
	excludes []string
}

// NewCollector creates a collector over fsys rooted at root. The default
// excludes are always active in addition to the given patterns.
func NewCollector(fsys afero.Fs, root string, excludes ...string) *Collector {
	patterns := make([]string, 0, len(DefaultExcludes)+len(excludes))
	patterns = append(patterns, DefaultExcludes...)
	for _, p := range excludes {
		p = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
		if p != "" {
			patterns = append(patterns, p)
		}
	}

	return &Collector{
		fs:       fsys,
		root:     root,
		excludes: patterns,
	}
}

// Root returns the source root being collected.
func (c *Collector) Root() string { return c.root }

// Collect yields relative paths of matching files. A walk failure is yielded
// once as a CollectionError and ends the sequence.
func (c *Collector) Collect(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		info, err := c.fs.Stat(c.root)
		if err != nil {
			yield("", errors.NewCollectionError(c.root, err))
			return
		}
		if !info.IsDir() {
			yield("", errors.NewCollectionError(c.root, fs.ErrInvalid).
				WithContext("reason", "source root is not a directory"))
			return
		}

		stopped := false
		walkErr := afero.Walk(c.fs, c.root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return errors.NewCollectionError(p, err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, err := filepath.Rel(c.root, p)
			if err != nil {
				return errors.NewCollectionError(p, err)
			}
			rel = filepath.ToSlash(rel)

			if info.IsDir() {
				if rel != "." && c.excludedDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}

			if path.Ext(rel) != ".svg" || c.Excluded(rel) {
				return nil
			}

			if !yield(rel, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})

		if walkErr != nil && !stopped {
			yield("", walkErr)
		}
	}
}

// Paths drains Collect into a slice, stopping at the first error.
func (c *Collector) Paths(ctx context.Context) ([]string, error) {
	var paths []string
	for p, err := range c.Collect(ctx) {
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Excluded reports whether a root-relative file path matches an exclude rule.
func (c *Collector) Excluded(rel string) bool {
	for _, pattern := range c.excludes {
		if matchPattern(pattern, rel) {
			return true
		}
	}
	return false
}

func (c *Collector) excludedDir(rel string) bool {
	for _, pattern := range c.excludes {
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			if dir == rel {
				return true
			}
			if !strings.ContainsAny(dir, "*?[") {
				continue
			}
			if ok, _ := path.Match(dir, rel); ok {
				return true
			}
		}
	}
	return false
}

// matchPattern supports path.Match globs plus a trailing "/**" meaning the
// whole subtree.
func matchPattern(pattern, rel string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
		if rel == dir || strings.HasPrefix(rel, dir+"/") {
			return true
		}
		// glob directory prefixes, e.g. "*/drafts/**"
		for d := path.Dir(rel); d != "."; d = path.Dir(d) {
			if ok, _ := path.Match(dir, d); ok {
				return true
			}
		}
		return false
	}

	ok, _ := path.Match(pattern, rel)
	return ok
}
