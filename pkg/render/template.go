package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-amptools/pkg/loader"
)

// Template is a compiled pongo2 template.
type Template struct {
	name   string
	origin loader.Origin
	tpl    *pongo2.Template
	engine *Engine
}

var _ loader.Template = (*Template)(nil)

func (t *Template) Name() string { return t.name }

func (t *Template) Origin() loader.Origin { return t.origin }

// Render executes the template. Unless data already defines it, the "amp"
// variable holds the tag active on ctx and whether it is the AMP tag.
func (t *Template) Render(ctx context.Context, data any, w io.Writer) error {
	viewContext, err := convertToContext(data)
	if err != nil {
		return fmt.Errorf("render: convert data: %w", err)
	}
	if _, ok := viewContext["amp"]; !ok {
		tag := t.engine.detector.Detect(ctx)
		viewContext["amp"] = map[string]any{
			"tag":    string(tag),
			"active": tag == t.engine.settings.Folder,
		}
	}

	t.engine.mu.RLock()
	err = t.tpl.ExecuteWriter(viewContext, w)
	t.engine.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("render: execute template %q: %w", t.origin.Name, err)
	}
	return nil
}

func convertToContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return copyContext(v), nil
	case map[string]any:
		return copyContext(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return copyContext(out), nil
	}
}

func copyContext(in map[string]any) pongo2.Context {
	out := make(pongo2.Context, len(in)+1)
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}
