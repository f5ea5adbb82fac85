package amploader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/loader"
)

// Prefixing resolves templates inside the namespace of the current context
// tag by rewriting names before handing them to its backend chain.
type Prefixing struct {
	registry *loader.Registry
	ids      []string
	detector amp.Detector
	prefix   string
	logger   zerolog.Logger

	mu      sync.Mutex
	loaders []loader.Loader
}

var _ loader.SourceLoader = (*Prefixing)(nil)

// NewPrefixing returns a loader whose backend chain is built lazily from the
// identifiers in ids, resolved through registry.
func NewPrefixing(registry *loader.Registry, ids []string, options ...Option) *Prefixing {
	cfg := newConfig(options)
	return &Prefixing{
		registry: registry,
		ids:      append([]string(nil), ids...),
		detector: cfg.detector,
		prefix:   cfg.prefix,
		logger:   cfg.logger,
	}
}

// PrepareTemplateName returns "<prefix><tag>/<name>" for the tag active on ctx.
func (l *Prefixing) PrepareTemplateName(ctx context.Context, name string) string {
	name = string(l.detector.Detect(ctx)) + "/" + name
	if l.prefix != "" {
		name = l.prefix + name
	}
	return name
}

// TemplateSources yields the origins every source-enumerating backend offers
// for the rewritten name, in chain order. A backend reporting
// loader.ErrOutsideRoot is skipped; any other error is yielded and ends the
// sequence.
func (l *Prefixing) TemplateSources(ctx context.Context, name string) iter.Seq2[loader.Origin, error] {
	return func(yield func(loader.Origin, error) bool) {
		prepared := l.PrepareTemplateName(ctx, name)
		for _, backend := range l.SourceLoaders() {
			sources, ok := loader.AsSourceLoader(backend)
			if !ok {
				continue
			}
			for origin, err := range sources.TemplateSources(ctx, prepared) {
				if err != nil {
					if errors.Is(err, loader.ErrOutsideRoot) {
						break
					}
					yield(loader.Origin{}, err)
					return
				}
				if !yield(origin, nil) {
					return
				}
			}
		}
	}
}

// Contents reads origin through the backend that produced it.
func (l *Prefixing) Contents(ctx context.Context, origin loader.Origin) ([]byte, error) {
	sources, ok := loader.AsSourceLoader(origin.Loader)
	if !ok {
		return nil, fmt.Errorf("amploader: origin %q has no readable loader", origin.Name)
	}
	return sources.Contents(ctx, origin)
}

// GetTemplate returns the first template a backend resolves for the rewritten
// name. skip is passed to every backend untouched.
func (l *Prefixing) GetTemplate(ctx context.Context, name string, skip []loader.Origin) (loader.Template, error) {
	prepared := l.PrepareTemplateName(ctx, name)
	for _, backend := range l.SourceLoaders() {
		tpl, err := backend.GetTemplate(ctx, prepared, skip)
		if err == nil {
			return tpl, nil
		}
		if !loader.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, &loader.NotFoundError{Name: prepared, Tried: []string{prepared}}
}

// SourceLoaders returns the backend chain, building it on first use.
// Identifiers that fail to resolve are left out. The same slice is returned
// until Reload is called.
func (l *Prefixing) SourceLoaders() []loader.Loader {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaders == nil {
		l.loaders = l.buildLoaders()
	}
	return l.loaders
}

// Reload drops the backend chain so the next lookup rebuilds it.
func (l *Prefixing) Reload() {
	l.mu.Lock()
	l.loaders = nil
	l.mu.Unlock()
}

func (l *Prefixing) buildLoaders() []loader.Loader {
	loaders := make([]loader.Loader, 0, len(l.ids))
	if l.registry == nil {
		return loaders
	}
	for _, id := range l.ids {
		backend, ok := l.registry.Resolve(id)
		if !ok {
			l.logger.Debug().Str("loader", id).Msg("skipping unresolved template loader")
			continue
		}
		loaders = append(loaders, backend)
	}
	return loaders
}
