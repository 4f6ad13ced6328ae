// Package internal contains the core implementation packages for svgsprite.
//
// # Package Organization
//
// The internal packages are organized by build stage:
//
//   - collect: Source tree walk, exclusion patterns and concurrent reads
//   - icon: Icon records, identifier derivation and the ordered icon set
//   - svgxml: Minimal SVG document model with charset aware parsing
//   - optimize: Per-icon cleanup before the icon becomes a symbol
//   - sprite: Sprite assembly from the optimized icons
//   - thumbnail: PNG data URI rendering for documentation
//   - manifest: Identifier manifests (plain text, Go, TypeScript)
//   - docs: Markdown readme and HTML catalog rendering
//   - output: Sequential atomic artifact writes
//   - pipeline: Build orchestration, callbacks and build metrics
//   - config: Configuration loading, defaults and validation
//   - errors: Build error taxonomy and user facing suggestions
//   - logging: Structured logging on top of log/slog
//   - watcher: File system monitoring with debouncing
//   - server: Development catalog server with live reload
//   - version: Build and VCS metadata
//
// # Data Flow
//
// A build runs collect, optimize and sprite in order. The manifest, readme
// and catalog renderers read the same icon set. Every artifact is rendered
// in memory first; output writes them only after all renderers succeed, so
// a failed build leaves the previous artifacts untouched.
//
// The watcher triggers pipeline rebuilds, and the server subscribes to
// build results through a pipeline callback.
package internal
