package amploader

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/cache"
)

// Option configures the loaders in this package.
type Option func(*config)

type config struct {
	detector     amp.Detector
	prefix       string
	logger       zerolog.Logger
	store        cache.Store[*Entry]
	finder       Finder
	singleflight bool
}

func newConfig(options []Option) *config {
	cfg := &config{
		detector: amp.ContextDetector{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return cfg
}

// WithDetector overrides how the context tag is read. Defaults to
// amp.ContextDetector.
func WithDetector(detector amp.Detector) Option {
	return func(cfg *config) {
		if detector != nil {
			cfg.detector = detector
		}
	}
}

// WithPrefix prepends prefix to every rewritten template name.
func WithPrefix(prefix string) Option {
	return func(cfg *config) {
		cfg.prefix = strings.TrimSpace(prefix)
	}
}

// WithLogger attaches a logger for debug diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithStore sets the cache store used by Cached. Defaults to an unbounded
// cache.MapStore.
func WithStore(store cache.Store[*Entry]) Option {
	return func(cfg *config) {
		if store != nil {
			cfg.store = store
		}
	}
}

// WithFinder replaces the facility Cached uses to locate uncached templates.
func WithFinder(finder Finder) Option {
	return func(cfg *config) {
		if finder != nil {
			cfg.finder = finder
		}
	}
}

// WithSingleflight collapses concurrent misses for the same cache key into a
// single find and compile. Without it concurrent misses each do the work and
// the last store write wins.
func WithSingleflight() Option {
	return func(cfg *config) {
		cfg.singleflight = true
	}
}
