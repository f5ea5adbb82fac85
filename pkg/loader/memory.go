package loader

import (
	"context"
	"fmt"
	"iter"
)

// Memory is a loader backed by an in-memory map of template name to source.
type Memory struct {
	files    map[string]string
	compiler Compiler
}

var _ SourceLoader = (*Memory)(nil)

// NewMemory copies files into a new loader.
func NewMemory(compiler Compiler, files map[string]string) *Memory {
	cpy := make(map[string]string, len(files))
	for k, v := range files {
		cpy[k] = v
	}
	return &Memory{files: cpy, compiler: compiler}
}

func (m *Memory) TemplateSources(_ context.Context, name string) iter.Seq2[Origin, error] {
	return func(yield func(Origin, error) bool) {
		yield(Origin{Name: "memory:" + name, TemplateName: name, Loader: m}, nil)
	}
}

func (m *Memory) Contents(_ context.Context, origin Origin) ([]byte, error) {
	v, ok := m.files[origin.TemplateName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, origin.Name)
	}
	return []byte(v), nil
}

func (m *Memory) GetTemplate(ctx context.Context, name string, skip []Origin) (Template, error) {
	return Base{Sources: m, Compiler: m.compiler}.GetTemplate(ctx, name, skip)
}
