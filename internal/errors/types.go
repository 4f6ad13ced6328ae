// Package errors defines the structured error taxonomy used by every stage of
// the sprite build. Each error records the stage that failed and the source
// path that triggered it so the CLI can report precisely which input broke
// the run.
package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeCollection          ErrorType = "collection"
	ErrorTypeOptimization        ErrorType = "optimization"
	ErrorTypeIdentifierCollision ErrorType = "identifier_collision"
	ErrorTypeRender              ErrorType = "render"
	ErrorTypeEmit                ErrorType = "emit"
	ErrorTypeWrite               ErrorType = "write"
	ErrorTypeInternal            ErrorType = "internal"
)

// Pipeline stage names carried on errors and log records.
const (
	StageConfig     = "config"
	StageCollect    = "collect"
	StageOptimize   = "optimize"
	StageIdentify   = "identify"
	StageSprite     = "sprite"
	StageThumbnail  = "thumbnail"
	StageManifest   = "manifest"
	StageDocs       = "docs"
	StageWrite      = "write"
	StageDistribute = "distribute"
)

// Common error codes.
const (
	ErrCodeConfigInvalid       = "ERR_CONFIG_INVALID"
	ErrCodePathUnresolvable    = "ERR_PATH_UNRESOLVABLE"
	ErrCodeSourceUnreadable    = "ERR_SOURCE_UNREADABLE"
	ErrCodeMalformedSVG        = "ERR_MALFORMED_SVG"
	ErrCodeIdentifierCollision = "ERR_IDENTIFIER_COLLISION"
	ErrCodeRasterFailed        = "ERR_RASTER_FAILED"
	ErrCodeInvalidIdentifier   = "ERR_INVALID_IDENTIFIER"
	ErrCodeEmitFailed          = "ERR_EMIT_FAILED"
	ErrCodeWriteFailed         = "ERR_WRITE_FAILED"
	ErrCodeInternalError       = "ERR_INTERNAL"
)

// BuildError is a structured error type with stage and path context.
type BuildError struct {
	Type    ErrorType
	Code    string
	Stage   string
	Path    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Stage != "" {
		parts = append(parts, "stage:"+e.Stage)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BuildError) Is(target error) bool {
	var t *BuildError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *BuildError) WithContext(key string, value interface{}) *BuildError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithStage overrides the stage that reported the error.
func (e *BuildError) WithStage(stage string) *BuildError {
	e.Stage = stage

	return e
}

// Error creation functions

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Stage:   StageConfig,
		Message: message,
	}
}

// NewCollectionError reports an unreadable source root or directory.
func NewCollectionError(path string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeCollection,
		Code:    ErrCodeSourceUnreadable,
		Stage:   StageCollect,
		Path:    path,
		Message: "source not readable",
		Cause:   cause,
	}
}

// NewOptimizationError reports malformed vector markup.
func NewOptimizationError(path string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeOptimization,
		Code:    ErrCodeMalformedSVG,
		Stage:   StageOptimize,
		Path:    path,
		Message: "malformed svg",
		Cause:   cause,
	}
}

// NewCollisionError reports distinct source paths that sanitize to the same
// identifier. Paths are recorded sorted.
func NewCollisionError(identifier string, paths ...string) *BuildError {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	path := ""
	if len(sorted) > 0 {
		path = sorted[0]
	}

	return &BuildError{
		Type:  ErrorTypeIdentifierCollision,
		Code:  ErrCodeIdentifierCollision,
		Stage: StageIdentify,
		Path:  path,
		Message: fmt.Sprintf("identifier %s is produced by %s",
			identifier, strings.Join(sorted, ", ")),
		Context: map[string]interface{}{
			"identifier": identifier,
			"paths":      sorted,
		},
	}
}

// NewRenderError reports a rasterization failure for one file.
func NewRenderError(path string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeRender,
		Code:    ErrCodeRasterFailed,
		Stage:   StageThumbnail,
		Path:    path,
		Message: "rasterization failed",
		Cause:   cause,
	}
}

// NewEmitError reports an artifact that cannot be generated.
func NewEmitError(stage, code, path, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeEmit,
		Code:    code,
		Stage:   stage,
		Path:    path,
		Message: message,
	}
}

// NewWriteError reports an artifact that could not be persisted.
func NewWriteError(path string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeWrite,
		Code:    ErrCodeWriteFailed,
		Stage:   StageWrite,
		Path:    path,
		Message: "write failed",
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(stage, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err carries a BuildError of the given type.
func IsType(err error, t ErrorType) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// As returns the first BuildError in err's chain.
func As(err error) (*BuildError, bool) {
	var be *BuildError
	ok := errors.As(err, &be)

	return be, ok
}

// ErrorHandler provides centralized error reporting.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs an error with its stage and path.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	be, ok := As(err)
	if !ok {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch be.Type {
	case ErrorTypeConfig:
		h.logger.Error(ctx, err, "Invalid configuration",
			"type", be.Type,
			"code", be.Code)
	case ErrorTypeIdentifierCollision:
		h.logger.Error(ctx, err, "Identifier collision",
			"type", be.Type,
			"code", be.Code,
			"identifier", be.Context["identifier"],
			"paths", be.Context["paths"])
	default:
		h.logger.Error(ctx, err, "Build failed",
			"type", be.Type,
			"code", be.Code,
			"stage", be.Stage,
			"file", be.Path)
	}
}
