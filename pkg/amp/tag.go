package amp

import (
	"context"
	"strings"
)

// Tag names the template namespace active for a request, e.g. "amp".
type Tag string

// Built-in tags.
const (
	TagDefault Tag = "default"
	TagAMP     Tag = "amp"
)

// IsDefault reports whether the tag selects the regular (non-AMP) namespace.
func (t Tag) IsDefault() bool {
	return t == "" || t == TagDefault
}

func (t Tag) String() string {
	return string(t)
}

type tagKey struct{}

// WithTag returns a copy of ctx carrying tag.
func WithTag(ctx context.Context, tag Tag) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tagKey{}, tag)
}

// FromContext returns the tag stored by WithTag.
func FromContext(ctx context.Context) (Tag, bool) {
	if ctx == nil {
		return "", false
	}
	tag, ok := ctx.Value(tagKey{}).(Tag)
	if !ok || strings.TrimSpace(string(tag)) == "" {
		return "", false
	}
	return tag, true
}

// Detector yields the context tag for the request bound to ctx.
type Detector interface {
	Detect(ctx context.Context) Tag
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context) Tag

// Detect calls f(ctx).
func (f DetectorFunc) Detect(ctx context.Context) Tag {
	return f(ctx)
}

// ContextDetector reads the tag stored on the context and falls back to
// Default (TagDefault when empty) for contexts that never went through the
// detection middleware.
type ContextDetector struct {
	Default Tag
}

var _ Detector = ContextDetector{}

// Detect implements Detector.
func (d ContextDetector) Detect(ctx context.Context) Tag {
	if tag, ok := FromContext(ctx); ok {
		return tag
	}
	if d.Default != "" {
		return d.Default
	}
	return TagDefault
}
