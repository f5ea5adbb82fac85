package loader

import (
	"context"
	"errors"
	"fmt"
)

// Base implements GetTemplate for any SourceLoader: it walks the candidate
// origins in order, reads the first one that exists and compiles it.
type Base struct {
	Sources  SourceLoader
	Compiler Compiler
}

// GetTemplate implements Loader.
func (b Base) GetTemplate(ctx context.Context, name string, skip []Origin) (Template, error) {
	if b.Sources == nil {
		return nil, errors.New("loader: base has no source loader")
	}
	if b.Compiler == nil {
		return nil, errors.New("loader: base has no compiler")
	}

	var tried []string
	for origin, err := range b.Sources.TemplateSources(ctx, name) {
		if err != nil {
			if errors.Is(err, ErrOutsideRoot) {
				continue
			}
			return nil, err
		}
		if skipped(skip, origin) {
			tried = append(tried, origin.Name+" (skipped)")
			continue
		}

		contents, err := b.Sources.Contents(ctx, origin)
		if err != nil {
			if IsNotFound(err) {
				tried = append(tried, origin.Name+" (source does not exist)")
				continue
			}
			return nil, err
		}

		tpl, err := b.Compiler.Compile(ctx, &Source{Origin: origin, Contents: contents})
		if err != nil {
			return nil, fmt.Errorf("loader: compile %q: %w", origin.Name, err)
		}
		return tpl, nil
	}
	return nil, &NotFoundError{Name: name, Tried: tried}
}
