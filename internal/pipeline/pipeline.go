// Package pipeline runs a complete icon build: collect the sources, optimize
// them into a sorted working set, fan the set out to the artifact branches
// and, once every branch has succeeded, write the artifacts.
//
// Nothing is written until all artifacts are rendered in memory, so a
// failing branch never leaves a partial bundle next to stale siblings.
package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/conneroisu/svgsprite/internal/collect"
	"github.com/conneroisu/svgsprite/internal/config"
	"github.com/conneroisu/svgsprite/internal/docs"
	"github.com/conneroisu/svgsprite/internal/errors"
	"github.com/conneroisu/svgsprite/internal/icon"
	"github.com/conneroisu/svgsprite/internal/logging"
	"github.com/conneroisu/svgsprite/internal/manifest"
	"github.com/conneroisu/svgsprite/internal/optimize"
	"github.com/conneroisu/svgsprite/internal/output"
	"github.com/conneroisu/svgsprite/internal/sprite"
	"github.com/conneroisu/svgsprite/internal/thumbnail"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Artifact names.
const (
	ArtifactSprite   = "sprite"
	ArtifactManifest = "manifest"
	ArtifactReadme   = "readme"
	ArtifactCatalog  = "catalog"
)

// Artifact is one rendered output file.
type Artifact struct {
	Name string
	Path string
	Data []byte
}

// BuildResult represents the result of a build operation
type BuildResult struct {
	Icons     int
	Artifacts []Artifact
	Duration  time.Duration
	Error     error
	// Set is the working set the artifacts were derived from; nil when the
	// build failed before it was formed.
	Set *icon.Set
	// Documented is Set with thumbnails attached; nil when no artifact
	// needed thumbnails.
	Documented *icon.Set
}

// Rendering is the in-memory output of Render.
type Rendering struct {
	Artifacts  []Artifact
	Documented *icon.Set
}

// Artifact returns the artifact with the given name.
func (r *BuildResult) Artifact(name string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// BuildCallback is called when a build completes, successful or not.
type BuildCallback func(result BuildResult)

// BuildPipeline manages the build process for an icon library.
type BuildPipeline struct {
	cfg       *config.Config
	fs        afero.Fs
	writer    output.Writer
	logger    logging.Logger
	optimizer *optimize.Optimizer
	assembler *sprite.Assembler
	renderer  *thumbnail.Renderer
	catalog   docs.Catalog
	metrics   *BuildMetrics

	// documentAlways renders thumbnails even when no artifact embeds them
	documentAlways bool

	mu        sync.Mutex
	callbacks []BuildCallback
}

// Option configures a BuildPipeline.
type Option func(*BuildPipeline)

// WithFs sets the filesystem sources are read from. Defaults to the OS.
func WithFs(fs afero.Fs) Option {
	return func(bp *BuildPipeline) { bp.fs = fs }
}

// WithWriter sets where artifacts are written. Defaults to an FSWriter
// over the pipeline filesystem.
func WithWriter(w output.Writer) Option {
	return func(bp *BuildPipeline) { bp.writer = w }
}

func WithLogger(logger logging.Logger) Option {
	return func(bp *BuildPipeline) { bp.logger = logger }
}

// WithRenderer replaces the thumbnail renderer.
func WithRenderer(r *thumbnail.Renderer) Option {
	return func(bp *BuildPipeline) { bp.renderer = r }
}

// WithCatalog sets the options of the HTML catalog artifact.
func WithCatalog(c docs.Catalog) Option {
	return func(bp *BuildPipeline) { bp.catalog = c }
}

// WithThumbnails renders thumbnails on every build so BuildResult.Documented
// is populated for callbacks even when every documentation artifact is off.
func WithThumbnails() Option {
	return func(bp *BuildPipeline) { bp.documentAlways = true }
}

// NewBuildPipeline creates a pipeline for cfg.
func NewBuildPipeline(cfg *config.Config, opts ...Option) *BuildPipeline {
	bp := &BuildPipeline{
		cfg:       cfg,
		optimizer: optimize.New(optimize.DefaultOptions()),
		assembler: sprite.NewAssembler(),
		metrics:   NewBuildMetrics(),
	}
	for _, opt := range opts {
		opt(bp)
	}

	if bp.fs == nil {
		bp.fs = afero.NewOsFs()
	}
	if bp.writer == nil {
		bp.writer = output.NewFSWriter(bp.fs)
	}
	if bp.logger == nil {
		bp.logger = logging.Discard()
	}
	bp.logger = bp.logger.WithComponent("pipeline")
	if bp.renderer == nil {
		bp.renderer = thumbnail.NewRenderer(
			thumbnail.WithSize(cfg.Thumbnail.Size),
			thumbnail.WithConcurrency(cfg.Concurrency),
		)
	}

	return bp
}

// AddCallback registers a function run after every build.
func (bp *BuildPipeline) AddCallback(callback BuildCallback) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.callbacks = append(bp.callbacks, callback)
}

// GetMetrics returns a snapshot of the build metrics.
func (bp *BuildPipeline) GetMetrics() BuildMetrics {
	return bp.metrics.GetSnapshot()
}

// Build runs a full build and writes the enabled artifacts.
func (bp *BuildPipeline) Build(ctx context.Context) (*BuildResult, error) {
	start := time.Now()
	perf := logging.StartOperation(bp.logger, "build")

	result, err := bp.build(ctx)
	result.Duration = time.Since(start)
	result.Error = err

	if err != nil {
		perf.EndWithError(ctx, err)
	} else {
		perf.End(ctx, "icons", result.Icons, "artifacts", len(result.Artifacts))
	}

	bp.metrics.RecordBuild(*result)
	bp.notify(*result)

	return result, err
}

func (bp *BuildPipeline) build(ctx context.Context) (*BuildResult, error) {
	result := &BuildResult{}

	set, err := bp.Plan(ctx)
	if err != nil {
		return result, err
	}
	result.Set = set
	result.Icons = set.Len()

	rendering, err := bp.Render(ctx, set)
	if err != nil {
		return result, err
	}

	if err := bp.write(ctx, rendering.Artifacts); err != nil {
		return result, err
	}
	result.Artifacts = rendering.Artifacts
	result.Documented = rendering.Documented

	return result, nil
}

// Plan collects and optimizes the sources into the working set without
// rendering anything.
func (bp *BuildPipeline) Plan(ctx context.Context) (*icon.Set, error) {
	collector := collect.NewCollector(bp.fs, bp.cfg.Src, bp.cfg.ExcludePatterns...)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.cfg.Concurrency)

	var (
		mu      sync.Mutex
		records []icon.Record
	)

	for rel, err := range collector.Collect(gctx) {
		if err != nil {
			// stop launching work; the walk error wins unless a worker
			// already failed and cancelled the walk
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}
			return nil, err
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := bp.load(rel)
			if err != nil {
				return err
			}
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set, err := icon.NewSet(records)
	if err != nil {
		return nil, err
	}

	bp.logger.Debug(ctx, "Working set formed", "icons", set.Len())
	return set, nil
}

// load reads and optimizes one source file.
func (bp *BuildPipeline) load(rel string) (icon.Record, error) {
	raw, err := afero.ReadFile(bp.fs, filepath.Join(bp.cfg.Src, filepath.FromSlash(rel)))
	if err != nil {
		return icon.Record{}, errors.NewCollectionError(rel, err)
	}

	optimized, err := bp.optimizer.Optimize(rel, raw)
	if err != nil {
		return icon.Record{}, err
	}

	return icon.NewRecord(rel, optimized), nil
}

// Render produces every enabled artifact for set. The sprite branch and
// the thumbnail branch run concurrently; the first failure cancels the
// other.
func (bp *BuildPipeline) Render(ctx context.Context, set *icon.Set) (*Rendering, error) {
	var prepend []byte
	if bp.cfg.Emit.Readme && bp.cfg.PrependReadme != "" {
		data, err := afero.ReadFile(bp.fs, bp.cfg.PrependReadme)
		if err != nil {
			return nil, errors.NewCollectionError(bp.cfg.PrependReadme, err).
				WithContext("setting", "prepend_readme")
		}
		prepend = data
	}

	var (
		spriteArtifacts []Artifact
		documented      *documentedOutput
	)

	g, gctx := errgroup.WithContext(ctx)

	if bp.cfg.Emit.Sprite {
		g.Go(func() error {
			data, err := bp.assembler.Assemble(set.View())
			if err != nil {
				return err
			}
			spriteArtifacts = []Artifact{{Name: ArtifactSprite, Path: bp.cfg.SpritePath(), Data: data}}
			bp.logger.Debug(gctx, "Sprite assembled", "bytes", len(data))
			return nil
		})
	}

	if bp.needsThumbnails() {
		g.Go(func() error {
			out, err := bp.renderDocumented(gctx, set, prepend)
			if err != nil {
				return err
			}
			documented = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rendering := &Rendering{Artifacts: spriteArtifacts}
	if documented != nil {
		rendering.Artifacts = append(rendering.Artifacts, documented.artifacts...)
		rendering.Documented = documented.set
	}
	return rendering, nil
}

type documentedOutput struct {
	artifacts []Artifact
	set       *icon.Set
}

func (bp *BuildPipeline) needsThumbnails() bool {
	return bp.documentAlways || bp.cfg.Emit.Manifest || bp.cfg.Emit.Readme || bp.cfg.DocPath != ""
}

// renderDocumented renders thumbnails and the artifacts that embed them.
func (bp *BuildPipeline) renderDocumented(ctx context.Context, set *icon.Set, prepend []byte) (*documentedOutput, error) {
	records, err := bp.renderer.Render(ctx, set.View())
	if err != nil {
		return nil, err
	}
	enriched, err := set.Enrich(records)
	if err != nil {
		return nil, err
	}
	view := enriched.View()
	bp.logger.Debug(ctx, "Thumbnails rendered", "icons", view.Len())

	var artifacts []Artifact

	if bp.cfg.Emit.Manifest {
		emitter, err := manifest.NewEmitter(bp.cfg.NamesFilename, bp.cfg.Manifest.Package)
		if err != nil {
			return nil, err
		}
		data, err := emitter.Emit(view)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{Name: ArtifactManifest, Path: bp.cfg.NamesPath(), Data: data})
	}

	if bp.cfg.Emit.Readme {
		artifacts = append(artifacts, Artifact{
			Name: ArtifactReadme,
			Path: bp.cfg.ReadmePath(),
			Data: docs.Markdown(view, prepend),
		})
	}

	if bp.cfg.DocPath != "" {
		data, err := bp.catalog.Render(ctx, view)
		if err != nil {
			return nil, errors.NewEmitError(errors.StageDocs, errors.ErrCodeEmitFailed, bp.cfg.DocPath, err.Error())
		}
		artifacts = append(artifacts, Artifact{Name: ArtifactCatalog, Path: bp.cfg.DocPath, Data: data})
	}

	return &documentedOutput{artifacts: artifacts, set: enriched}, nil
}

func (bp *BuildPipeline) write(ctx context.Context, artifacts []Artifact) error {
	for _, a := range artifacts {
		if err := bp.writer.Write(ctx, a.Path, a.Data); err != nil {
			return err
		}
		bp.logger.Debug(ctx, "Artifact written", "artifact", a.Name, "path", a.Path, "bytes", len(a.Data))
	}
	return nil
}

func (bp *BuildPipeline) notify(result BuildResult) {
	bp.mu.Lock()
	callbacks := append([]BuildCallback(nil), bp.callbacks...)
	bp.mu.Unlock()

	for _, cb := range callbacks {
		cb(result)
	}
}
