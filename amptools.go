// Package amptools wires the AMP-aware template loaders into a ready-to-use
// environment: requests tagged as AMP resolve "page.html" to "amp/page.html"
// first and fall back to the plain template, with compiled templates cached
// per tag.
package amptools

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/amploader"
	"github.com/goliatone/go-amptools/pkg/cache"
	"github.com/goliatone/go-amptools/pkg/config"
	"github.com/goliatone/go-amptools/pkg/loader"
	"github.com/goliatone/go-amptools/pkg/render"
)

// LoaderMemory identifies the in-memory loader registered by
// WithMemoryTemplates.
const LoaderMemory = "memory"

// Option customises New.
type Option func(*options)

type options struct {
	logger    zerolog.Logger
	factories map[string]func(loader.Compiler) (loader.Loader, error)
	order     []string
	engine    []render.Option
}

// WithLogger sets the logger used by the loaders.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLoader registers an additional loader identifier that configuration
// can reference. The factory receives the environment's compiler.
func WithLoader(id string, factory func(loader.Compiler) (loader.Loader, error)) Option {
	return func(o *options) {
		id = strings.TrimSpace(id)
		if id == "" || factory == nil {
			return
		}
		if _, exists := o.factories[id]; !exists {
			o.order = append(o.order, id)
		}
		o.factories[id] = factory
	}
}

// WithMemoryTemplates registers the "memory" loader identifier backed by files.
func WithMemoryTemplates(files map[string]string) Option {
	return WithLoader(LoaderMemory, func(compiler loader.Compiler) (loader.Loader, error) {
		return loader.NewMemory(compiler, files), nil
	})
}

// WithEngineOptions forwards options to the render engine.
func WithEngineOptions(opts ...render.Option) Option {
	return func(o *options) {
		o.engine = append(o.engine, opts...)
	}
}

// Environment resolves and renders templates for tagged requests.
type Environment struct {
	config    config.Config
	settings  amp.Settings
	logger    zerolog.Logger
	engine    *render.Engine
	registry  *loader.Registry
	prefixing *amploader.Prefixing
	cached    *amploader.Cached
	root      loader.Loader
}

// New builds an Environment from cfg.
func New(cfg config.Config, opts ...Option) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	settings, err := cfg.AMPSettings()
	if err != nil {
		return nil, err
	}

	o := &options{
		logger:    zerolog.Nop(),
		factories: make(map[string]func(loader.Compiler) (loader.Loader, error)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	detector := amp.ContextDetector{Default: settings.DefaultTag}

	engineOpts := []render.Option{
		render.WithAMPSettings(settings),
		render.WithDetector(detector),
	}
	for _, dir := range cfg.TemplateDirs {
		engineOpts = append(engineOpts, render.WithFS(os.DirFS(dir)))
	}
	engineOpts = append(engineOpts, render.WithFS(EmbeddedTemplates()))
	engineOpts = append(engineOpts, o.engine...)

	engine, err := render.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("amptools: %w", err)
	}

	registry, err := newRegistry(engine, cfg, o)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		config:   cfg,
		settings: settings,
		logger:   o.logger,
		engine:   engine,
		registry: registry,
		prefixing: amploader.NewPrefixing(registry, cfg.TemplateLoaders,
			amploader.WithPrefix(cfg.TemplatePrefix),
			amploader.WithDetector(detector),
			amploader.WithLogger(o.logger),
		),
	}

	chain := firstMatch{env.prefixing}
	for _, id := range cfg.FallbackLoaders {
		l, ok := registry.Resolve(id)
		if !ok {
			o.logger.Warn().Str("loader", id).Msg("skipping unresolved fallback loader")
			continue
		}
		chain = append(chain, l)
	}
	env.root = chain

	if cfg.Cache.Enabled {
		store, err := newStore(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("amptools: %w", err)
		}
		cachedOpts := []amploader.Option{
			amploader.WithStore(store),
			amploader.WithDetector(detector),
			amploader.WithLogger(o.logger),
		}
		if cfg.Cache.Singleflight {
			cachedOpts = append(cachedOpts, amploader.WithSingleflight())
		}
		env.cached = amploader.NewCached(engine, chain, cachedOpts...)
		env.root = env.cached
	}

	return env, nil
}

func newRegistry(engine *render.Engine, cfg config.Config, o *options) (*loader.Registry, error) {
	registry := loader.NewRegistry()
	registry.MustRegister(config.LoaderFilesystem, func() (loader.Loader, error) {
		return loader.NewFilesystem(engine, cfg.TemplateDirs...), nil
	})
	registry.MustRegister(config.LoaderEmbedded, func() (loader.Loader, error) {
		return loader.NewFS(engine, config.LoaderEmbedded, EmbeddedTemplates()), nil
	})
	for _, id := range o.order {
		factory := o.factories[id]
		if err := registry.Register(id, func() (loader.Loader, error) {
			return factory(engine)
		}); err != nil {
			return nil, fmt.Errorf("amptools: %w", err)
		}
	}
	return registry, nil
}

func newStore(cfg config.Cache) (cache.Store[*amploader.Entry], error) {
	if cfg.Size > 0 {
		return cache.NewLRUStore[*amploader.Entry](cfg.Size)
	}
	return cache.NewMapStore[*amploader.Entry](), nil
}

// GetTemplate resolves name for the tag active on ctx.
func (e *Environment) GetTemplate(ctx context.Context, name string) (loader.Template, error) {
	return e.root.GetTemplate(ctx, name, nil)
}

// RenderTemplate resolves and executes name, returning the output and writing
// it to every out.
func (e *Environment) RenderTemplate(ctx context.Context, name string, data any, out ...io.Writer) (string, error) {
	tpl, err := e.GetTemplate(ctx, name)
	if err != nil {
		return "", err
	}
	return render.Execute(ctx, tpl, data, out...)
}

// Sources lists the AMP candidates for name under the tag active on ctx.
func (e *Environment) Sources(ctx context.Context, name string) (string, iter.Seq2[loader.Origin, error]) {
	return e.prefixing.PrepareTemplateName(ctx, name), e.prefixing.TemplateSources(ctx, name)
}

// Middleware tags incoming requests with their detected context tag.
func (e *Environment) Middleware() func(http.Handler) http.Handler {
	return amp.Middleware(e.settings)
}

// Reload rebuilds the AMP loader chain and empties the template cache.
func (e *Environment) Reload() {
	e.prefixing.Reload()
	if e.cached != nil {
		e.cached.Reset()
	}
}

// Engine returns the render engine.
func (e *Environment) Engine() *render.Engine { return e.engine }

// Settings returns the compiled detection settings.
func (e *Environment) Settings() amp.Settings { return e.settings }

// Registry returns the loader registry.
func (e *Environment) Registry() *loader.Registry { return e.registry }

// Cached returns the cached loader, or nil when caching is disabled.
func (e *Environment) Cached() *amploader.Cached { return e.cached }

// firstMatch resolves a name with the first loader that has it.
type firstMatch []loader.Loader

func (f firstMatch) GetTemplate(ctx context.Context, name string, skip []loader.Origin) (loader.Template, error) {
	var tried []string
	for _, l := range f {
		tpl, err := l.GetTemplate(ctx, name, skip)
		if err == nil {
			return tpl, nil
		}
		if !loader.IsNotFound(err) {
			return nil, err
		}
		tried = append(tried, loader.TriedNames(err, name)...)
	}
	return nil, &loader.NotFoundError{Name: name, Tried: tried}
}
