// Package specio defines the external contract that format-specific parsers
// (YAML/markdown, JSON) conform to:
//
//	parse(content, fileMeta) → Spec
//	serialize(Spec) → content
//	canParse(content) → bool
//	supportedExtensions() → [string]
//
// This package and its yamlfmt/jsonfmt subpackages are the concrete format
// implementations the Spec Store depends on.
package specio

import (
	"time"

	"github.com/mark3labs/specflow/internal/specmodel"
)

// FileMeta is filesystem metadata passed alongside raw content to Parse, so
// a format can derive an id from the filename or report the path in warnings.
type FileMeta struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// ParseWarning is a non-fatal note produced while parsing (e.g. an id
// derived from a filename, or an unparseable date coerced to nil).
type ParseWarning struct {
	Field   string
	Message string
}

// Format is the contract every spec file format adapter implements.
type Format interface {
	Parse(content []byte, meta FileMeta) (*specmodel.Spec, []ParseWarning, error)
	Serialize(spec *specmodel.Spec) ([]byte, error)
	CanParse(content []byte) bool
	SupportedExtensions() []string
}
