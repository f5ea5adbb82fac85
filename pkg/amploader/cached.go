package amploader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/cache"
	"github.com/goliatone/go-amptools/pkg/loader"
)

// Entry is a cached lookup result. A compiled entry has Template set and a nil
// Origin. When compiling a found source failed because a template it depends
// on is missing, the raw Source and its Origin are kept instead.
type Entry struct {
	Template loader.Template
	Source   *loader.Source
	Origin   *loader.Origin

	missing bool
}

// Missing reports whether the entry records a template known not to exist.
func (e *Entry) Missing() bool {
	return e != nil && e.missing
}

var missingEntry = &Entry{missing: true}

// Found is what a Finder located: either a compiled Template or a raw Source.
type Found struct {
	Template loader.Template
	Source   *loader.Source
	Origin   loader.Origin
}

// Finder locates a template that is not cached yet.
type Finder interface {
	FindTemplate(ctx context.Context, name string, dirs []string) (Found, error)
}

// ChainFinder asks each loader in order. Loaders able to return raw sources
// are asked for one (honouring dirs); the rest return compiled templates.
type ChainFinder []loader.Loader

// FindTemplate implements Finder.
func (c ChainFinder) FindTemplate(ctx context.Context, name string, dirs []string) (Found, error) {
	var tried []string
	for _, l := range c {
		if raw, ok := loader.AsRawLoader(l); ok {
			src, err := raw.LoadTemplateSource(ctx, name, dirs)
			if err == nil {
				return Found{Source: src, Origin: src.Origin}, nil
			}
			if !loader.IsNotFound(err) {
				return Found{}, err
			}
			tried = append(tried, loader.TriedNames(err, name)...)
			continue
		}

		tpl, err := l.GetTemplate(ctx, name, nil)
		if err == nil {
			return Found{Template: tpl, Origin: tpl.Origin()}, nil
		}
		if !loader.IsNotFound(err) {
			return Found{}, err
		}
		tried = append(tried, loader.TriedNames(err, name)...)
	}
	return Found{}, &loader.NotFoundError{Name: name, Tried: tried}
}

// Cached memoizes template lookups per context tag.
//
// Population takes no per-key lock: concurrent misses on one key each find and
// compile, and the last Set wins. Compiled templates depend only on the name
// and tag, so the duplicate work is harmless. WithSingleflight removes it.
type Cached struct {
	loaders  []loader.Loader
	compiler loader.Compiler
	finder   Finder
	store    cache.Store[*Entry]
	detector amp.Detector
	logger   zerolog.Logger
	group    *singleflight.Group
}

var _ loader.Loader = (*Cached)(nil)

// NewCached wraps loaders. compiler turns raw sources returned by the finder
// into templates.
func NewCached(compiler loader.Compiler, loaders []loader.Loader, options ...Option) *Cached {
	cfg := newConfig(options)

	c := &Cached{
		loaders:  append([]loader.Loader(nil), loaders...),
		compiler: compiler,
		finder:   cfg.finder,
		store:    cfg.store,
		detector: cfg.detector,
		logger:   cfg.logger,
	}
	if c.finder == nil {
		c.finder = ChainFinder(c.loaders)
	}
	if c.store == nil {
		c.store = cache.NewMapStore[*Entry]()
	}
	if cfg.singleflight {
		c.group = &singleflight.Group{}
	}
	return c
}

// CacheKey returns "<tag>:<name>[-<skip digest>][-<dirs digest>]". Digests
// are hex SHA-1 sums of the values joined by "|"; the skip digest covers the
// names of skipped origins requested under the same template name.
func (c *Cached) CacheKey(ctx context.Context, name string, dirs []string, skip []loader.Origin) string {
	parts := []string{name}

	var matching []string
	for _, origin := range skip {
		if origin.TemplateName == name {
			matching = append(matching, origin.Name)
		}
	}
	if len(matching) > 0 {
		parts = append(parts, digest(matching))
	}
	if len(dirs) > 0 {
		parts = append(parts, digest(dirs))
	}

	return string(c.detector.Detect(ctx)) + ":" + strings.Join(parts, "-")
}

func digest(values []string) string {
	sum := sha1.Sum([]byte(strings.Join(values, "|")))
	return hex.EncodeToString(sum[:])
}

// LoadTemplate returns the cached entry for name, finding and compiling it on
// a miss. A name cached as missing fails without consulting the finder again.
func (c *Cached) LoadTemplate(ctx context.Context, name string, dirs []string) (*Entry, error) {
	key := c.CacheKey(ctx, name, dirs, nil)

	if entry, ok := c.store.Get(key); ok {
		if entry.Missing() {
			return nil, &loader.NotFoundError{Name: name}
		}
		return entry, nil
	}

	return c.populate(key, func() (*Entry, error) {
		return c.find(ctx, key, name, dirs)
	})
}

func (c *Cached) find(ctx context.Context, key, name string, dirs []string) (*Entry, error) {
	c.logger.Debug().Str("key", key).Msg("template cache miss")

	found, err := c.finder.FindTemplate(ctx, name, dirs)
	if err != nil {
		if loader.IsNotFound(err) {
			c.store.Set(key, missingEntry)
		}
		return nil, err
	}

	tpl := found.Template
	if tpl == nil {
		if found.Source == nil {
			c.store.Set(key, missingEntry)
			return nil, &loader.NotFoundError{Name: name}
		}
		tpl, err = c.compiler.Compile(ctx, found.Source)
		if err != nil {
			if loader.IsNotFound(err) {
				origin := found.Origin
				c.store.Set(key, &Entry{Source: found.Source, Origin: &origin})
			}
			return nil, err
		}
	}

	entry := &Entry{Template: tpl}
	c.store.Set(key, entry)
	return entry, nil
}

// GetTemplate implements loader.Loader on top of the same store. The first
// wrapped loader to resolve name wins; a miss on every loader is cached.
func (c *Cached) GetTemplate(ctx context.Context, name string, skip []loader.Origin) (loader.Template, error) {
	key := c.CacheKey(ctx, name, nil, skip)

	if entry, ok := c.store.Get(key); ok {
		return entryTemplate(entry, name)
	}

	entry, err := c.populate(key, func() (*Entry, error) {
		return c.resolve(ctx, key, name, skip)
	})
	if err != nil {
		return nil, err
	}
	return entryTemplate(entry, name)
}

func (c *Cached) resolve(ctx context.Context, key, name string, skip []loader.Origin) (*Entry, error) {
	c.logger.Debug().Str("key", key).Msg("template cache miss")

	var tried []string
	for _, l := range c.loaders {
		tpl, err := l.GetTemplate(ctx, name, skip)
		if err == nil {
			entry := &Entry{Template: tpl}
			c.store.Set(key, entry)
			return entry, nil
		}
		if !loader.IsNotFound(err) {
			return nil, err
		}
		tried = append(tried, loader.TriedNames(err, name)...)
	}

	c.store.Set(key, missingEntry)
	return nil, &loader.NotFoundError{Name: name, Tried: tried}
}

func entryTemplate(entry *Entry, name string) (loader.Template, error) {
	switch {
	case entry.Missing():
		return nil, &loader.NotFoundError{Name: name}
	case entry.Template != nil:
		return entry.Template, nil
	case entry.Origin != nil:
		return nil, &loader.NotFoundError{Name: name, Tried: []string{entry.Origin.Name}}
	default:
		return nil, &loader.NotFoundError{Name: name}
	}
}

func (c *Cached) populate(key string, fn func() (*Entry, error)) (*Entry, error) {
	if c.group == nil {
		return fn()
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Reset empties the store.
func (c *Cached) Reset() {
	c.store.Clear()
}

// Store exposes the underlying cache store.
func (c *Cached) Store() cache.Store[*Entry] {
	return c.store
}
