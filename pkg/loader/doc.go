// Package loader defines the template loader contract shared by every backend
// and by the AMP layers that wrap them. A Loader resolves a template name to a
// compiled Template; optional capabilities (SourceLoader, RawLoader) are
// discovered with AsSourceLoader and AsRawLoader instead of reflection.
//
// Backends delegate file access to pongo2's own loaders and compilation to a
// Compiler, so this package never parses template syntax itself.
package loader
