package render_test

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-amptools/pkg/amp"
	"github.com/goliatone/go-amptools/pkg/loader"
	"github.com/goliatone/go-amptools/pkg/render"
	"github.com/goliatone/go-amptools/pkg/testsupport"
)

//go:embed testdata/templates
var embeddedTemplates embed.FS

func newEngine(t *testing.T) (*render.Engine, fs.FS) {
	t.Helper()

	templatesFS, err := fs.Sub(embeddedTemplates, "testdata/templates")
	if err != nil {
		t.Fatalf("sub fs: %v", err)
	}

	engine, err := render.New(render.WithFS(templatesFS))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine, templatesFS
}

func TestEngine_RendersExtendedTemplatePerTag(t *testing.T) {
	engine, files := newEngine(t)
	fsLoader := loader.NewFS(engine, "", files)

	tpl, err := fsLoader.GetTemplate(testsupport.AMPContext(), "amp/page.html", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return render.Execute(testsupport.AMPContext(), tpl, map[string]any{"name": "Ada"}, w)
	})
	if result != written {
		t.Fatalf("returned and written output differ\nresult: %q\nwritten: %q", result, written)
	}
	testsupport.AssertGolden(t, filepath.Join("testdata", "amp_page.golden"), result)

	result, err = render.Execute(testsupport.Context(), tpl, map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	testsupport.AssertGolden(t, filepath.Join("testdata", "default_page.golden"), result)
}

func TestEngine_CompileMissingParentIsNotFound(t *testing.T) {
	engine, files := newEngine(t)
	fsLoader := loader.NewFS(engine, "", files)

	_, err := fsLoader.GetTemplate(testsupport.AMPContext(), "amp/orphan.html", nil)
	if !loader.IsNotFound(err) {
		t.Fatalf("expected not found from missing parent, got %v", err)
	}
}

func TestEngine_CompileWithoutIncludeSources(t *testing.T) {
	engine, err := render.New()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	_, err = engine.RenderString(testsupport.Context(), `{% include "partial.html" %}`, nil)
	if !loader.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	out, err := engine.RenderString(testsupport.Context(), "{{ amp.tag }}", nil)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if out != "default" {
		t.Fatalf("expected default tag, got %q", out)
	}
}

func TestEngine_SyntaxErrorIsNotNotFound(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.RenderString(testsupport.Context(), "{% if %}", nil)
	if err == nil || loader.IsNotFound(err) {
		t.Fatalf("expected a syntax error, got %v", err)
	}
}

func TestEngine_DefaultFilters(t *testing.T) {
	engine, _ := newEngine(t)

	cases := []struct {
		tpl  string
		data map[string]any
		want string
	}{
		{`{{ v|trim }}`, map[string]any{"v": "  x  "}, "x"},
		{`{{ v|lowerfirst }}`, map[string]any{"v": "  Hello"}, "  hello"},
		{`{{ v|sanitize }}`, map[string]any{"v": `<script>alert(1)</script><b>ok</b>`}, "<b>ok</b>"},
		{`{{ "/blog/post"|amp_url }}`, nil, "/blog/post?amp-content=amp"},
	}
	for _, tc := range cases {
		got, err := engine.RenderString(testsupport.Context(), tc.tpl, tc.data)
		if err != nil {
			t.Fatalf("%s: %v", tc.tpl, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.tpl, tc.want, got)
		}
	}
}

func TestNew_RegistersFiltersAcrossEngines(t *testing.T) {
	settings := amp.DefaultSettings()
	settings.GetParameter = "view"

	custom, err := render.New(render.WithAMPSettings(settings))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	got, err := custom.RenderString(testsupport.Context(), `{{ " x "|trim }}{{ "/a"|amp_url }}`, nil)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "x/a?view=amp" {
		t.Fatalf("unexpected output %q", got)
	}

	engine, err := render.New()
	if err != nil {
		t.Fatalf("new default engine: %v", err)
	}
	got, err = engine.RenderString(testsupport.Context(), `{{ "/a"|amp_url }}`, nil)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "/a?amp-content=amp" {
		t.Fatalf("expected latest engine settings, got %q", got)
	}
}

func TestEngine_RegisterFilterAndGlobals(t *testing.T) {
	engine, _ := newEngine(t)
	err := engine.RegisterFilter("shout", func(input any, _ any) (any, error) {
		if input == nil {
			return "", nil
		}
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	if err := engine.GlobalContext(map[string]any{"site": "Example"}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	got, err := engine.RenderString(testsupport.Context(), "{{ site|shout }} {{ name }}", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "EXAMPLE! Ada" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_StructData(t *testing.T) {
	engine, _ := newEngine(t)
	data := struct {
		Title string `json:"title"`
	}{Title: "Post"}

	got, err := engine.RenderString(testsupport.AMPContext(), "{{ title }} {{ amp.active }}", data)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "Post True" {
		t.Fatalf("unexpected output %q", got)
	}
}
