package amploader_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/amploader"
	"github.com/goliatone/go-amptools/pkg/loader"
	"github.com/goliatone/go-amptools/pkg/render"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newEngineCached(t *testing.T, dir string) *amploader.Cached {
	t.Helper()

	engine, err := render.New(render.WithBaseDir(dir))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return amploader.NewCached(engine, []loader.Loader{loader.NewFilesystem(engine, dir)})
}

func TestCached_LoadTemplateMissingParentStoresSource(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"amp/child.html": `{% extends "missing.html" %}`,
	})
	cached := newEngineCached(t, dir)
	ctx := amp.WithTag(context.Background(), amp.TagAMP)

	entry, err := cached.LoadTemplate(ctx, "amp/child.html", nil)
	if !loader.IsNotFound(err) {
		t.Fatalf("expected not found from missing parent, got %v", err)
	}
	if entry != nil {
		t.Fatalf("expected no entry with the error, got %+v", entry)
	}

	key := cached.CacheKey(ctx, "amp/child.html", nil, nil)
	stored, ok := cached.Store().Get(key)
	if !ok {
		t.Fatalf("expected %q to be cached", key)
	}
	if stored.Missing() || stored.Template != nil {
		t.Fatalf("expected raw source entry, got %+v", stored)
	}
	if stored.Source == nil || stored.Origin == nil {
		t.Fatalf("expected source and origin to be kept, got %+v", stored)
	}
	if !strings.HasSuffix(stored.Origin.Name, filepath.Join("amp", "child.html")) {
		t.Fatalf("unexpected origin %q", stored.Origin.Name)
	}
	if string(stored.Source.Contents) != `{% extends "missing.html" %}` {
		t.Fatalf("unexpected source %q", stored.Source.Contents)
	}

	again, err := cached.LoadTemplate(ctx, "amp/child.html", nil)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again != stored {
		t.Fatalf("expected stored entry to be returned as is")
	}
	if cached.Store().Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", cached.Store().Len())
	}
}

func TestCached_LoadTemplateCompilesWithEngine(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"base.html":     `<b>{% block body %}{% endblock %}</b>`,
		"amp/page.html": `{% extends "base.html" %}{% block body %}{{ amp.tag }}{% endblock %}`,
	})
	cached := newEngineCached(t, dir)
	ctx := amp.WithTag(context.Background(), amp.TagAMP)

	entry, err := cached.LoadTemplate(ctx, "amp/page.html", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entry.Template == nil || entry.Origin != nil {
		t.Fatalf("expected compiled entry, got %+v", entry)
	}

	got, err := render.Execute(ctx, entry.Template, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "<b>amp</b>" {
		t.Fatalf("unexpected output %q", got)
	}
}
