package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/loader"
)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  []fs.FS
	templateFn map[string]any
	globalData map[string]any
	settings   amp.Settings
	detector   amp.Detector
}

// WithBaseDir lets {% include %} and {% extends %} resolve templates from a
// directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS lets {% include %} and {% extends %} resolve templates from an fs.FS.
// File systems are searched in the order they were added.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = append(cfg.templates, files)
		}
	}
}

// WithTemplateFunc registers helper functions or filters when the engine loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithAMPSettings sets the detection settings used by the amp_url filter and
// the "amp" template variable.
func WithAMPSettings(settings amp.Settings) Option {
	return func(cfg *config) {
		cfg.settings = settings
	}
}

// WithDetector overrides how the context tag is read at render time.
func WithDetector(detector amp.Detector) Option {
	return func(cfg *config) {
		if detector != nil {
			cfg.detector = detector
		}
	}
}

// Engine compiles template sources into pongo2 templates.
type Engine struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	settings    amp.Settings
	detector    amp.Detector
}

var _ loader.Compiler = (*Engine)(nil)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{
		settings: amp.DefaultSettings(),
		detector: amp.ContextDetector{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		l, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("render: create local loader: %w", err)
		}
		loaders = append(loaders, l)
	}
	for _, files := range cfg.templates {
		loaders = append(loaders, pongo2.NewFSLoader(files))
	}
	if len(loaders) == 0 {
		loaders = append(loaders, missingLoader{})
	}

	engine := &Engine{
		templateSet: pongo2.NewSet("amptools", loaders...),
		settings:    cfg.settings,
		detector:    cfg.detector,
	}
	if err := registerDefaultFilters(cfg.settings); err != nil {
		return nil, fmt.Errorf("render: register filters: %w", err)
	}

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("render: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := engine.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("render: register template func %q: %w", name, err)
		}
	}

	return engine, nil
}

// Compile implements loader.Compiler. Sources referring to a template the
// engine cannot find fail with loader.ErrTemplateNotFound.
func (e *Engine) Compile(ctx context.Context, src *loader.Source) (loader.Template, error) {
	if e == nil || e.templateSet == nil {
		return nil, errors.New("render: engine is nil")
	}
	if src == nil {
		return nil, errors.New("render: source is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	tpl, err := e.templateSet.FromBytes(src.Contents)
	e.mu.Unlock()

	if err != nil {
		if missingTemplate(err) {
			return nil, fmt.Errorf("render: compile %q: %w: %w", src.Origin.Name, loader.ErrTemplateNotFound, err)
		}
		return nil, fmt.Errorf("render: compile %q: %w", src.Origin.Name, err)
	}

	return &Template{
		name:   src.Origin.TemplateName,
		origin: src.Origin,
		tpl:    tpl,
		engine: e,
	}, nil
}

// RenderString compiles and executes templateContent in one step.
func (e *Engine) RenderString(ctx context.Context, templateContent string, data any, out ...io.Writer) (string, error) {
	tpl, err := e.Compile(ctx, &loader.Source{
		Origin:   loader.Origin{Name: "<string>"},
		Contents: []byte(templateContent),
	})
	if err != nil {
		return "", err
	}
	return Execute(ctx, tpl, data, out...)
}

// RegisterFilter registers a template filter. Filters are global to pongo2,
// so registering an existing name fails.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("render: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("render: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext merges data into the values every template can see.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("render: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if rv := reflect.ValueOf(fn); rv.Kind() != reflect.Func {
		return fmt.Errorf("render: %T is not a function", fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	return nil
}

// Execute renders tpl and returns the output, also writing it to every out.
func Execute(ctx context.Context, tpl loader.Template, data any, out ...io.Writer) (string, error) {
	if tpl == nil {
		return "", errors.New("render: template is nil")
	}

	var buf bytes.Buffer
	if err := tpl.Render(ctx, data, &buf); err != nil {
		return "", err
	}

	rendered := buf.String()
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

// unresolvedTemplate is the message pongo2 reports, without a wrapped cause,
// when no template loader can open a file.
const unresolvedTemplate = "unable to resolve template"

// missingTemplate follows pongo2 errors, which may nest through OrigError,
// looking for a file that could not be opened.
func missingTemplate(err error) bool {
	for err != nil {
		if errors.Is(err, fs.ErrNotExist) || loader.IsNotFound(err) {
			return true
		}
		var perr *pongo2.Error
		if !errors.As(err, &perr) || perr.OrigError == nil || perr.OrigError == err {
			return false
		}
		if perr.Sender == "fromfile" && perr.OrigError.Error() == unresolvedTemplate {
			return true
		}
		err = perr.OrigError
	}
	return false
}

// missingLoader backs template sets configured without include sources.
type missingLoader struct{}

func (missingLoader) Abs(_, name string) string {
	return name
}

func (missingLoader) Get(path string) (io.Reader, error) {
	return nil, fmt.Errorf("render: include %q: %w", path, fs.ErrNotExist)
}
