package loader

import (
	"context"
	"io"
	"iter"
)

// Origin describes where a template was (or would be) loaded from.
type Origin struct {
	// Name is the resolved location, e.g. an absolute file path.
	Name string
	// TemplateName is the name that was requested from the loader.
	TemplateName string
	// Loader produced the origin and can read its contents.
	Loader Loader
}

// Equal reports whether both origins point at the same location of the same
// loader.
func (o Origin) Equal(other Origin) bool {
	return o.Name == other.Name && o.Loader == other.Loader
}

// Source is a raw, uncompiled template.
type Source struct {
	Origin   Origin
	Contents []byte
}

// Template is a compiled template ready to render.
type Template interface {
	Name() string
	Origin() Origin
	Render(ctx context.Context, data any, w io.Writer) error
}

// Compiler turns raw sources into templates. It is implemented by the render
// engine.
type Compiler interface {
	Compile(ctx context.Context, src *Source) (Template, error)
}

// Loader resolves template names. Origins listed in skip must not be returned;
// template inheritance uses it to avoid resolving a template to itself.
type Loader interface {
	GetTemplate(ctx context.Context, name string, skip []Origin) (Template, error)
}

// SourceLoader is a Loader able to enumerate candidate origins for a name.
type SourceLoader interface {
	Loader
	TemplateSources(ctx context.Context, name string) iter.Seq2[Origin, error]
	Contents(ctx context.Context, origin Origin) ([]byte, error)
}

// RawLoader is a Loader able to return uncompiled sources, optionally from a
// caller-supplied directory list.
type RawLoader interface {
	Loader
	LoadTemplateSource(ctx context.Context, name string, dirs []string) (*Source, error)
}

// AsSourceLoader reports whether l can enumerate template sources.
func AsSourceLoader(l Loader) (SourceLoader, bool) {
	sl, ok := l.(SourceLoader)
	return sl, ok
}

// AsRawLoader reports whether l can return raw sources.
func AsRawLoader(l Loader) (RawLoader, bool) {
	rl, ok := l.(RawLoader)
	return rl, ok
}

func skipped(skip []Origin, origin Origin) bool {
	for _, s := range skip {
		if s.Equal(origin) {
			return true
		}
	}
	return false
}
