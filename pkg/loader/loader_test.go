package loader_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-amptools/pkg/loader"
)

type stubTemplate struct {
	src *loader.Source
}

func (t stubTemplate) Name() string          { return t.src.Origin.TemplateName }
func (t stubTemplate) Origin() loader.Origin { return t.src.Origin }
func (t stubTemplate) Render(_ context.Context, _ any, w io.Writer) error {
	_, err := w.Write(t.src.Contents)
	return err
}

type stubCompiler struct{}

func (stubCompiler) Compile(_ context.Context, src *loader.Source) (loader.Template, error) {
	return stubTemplate{src: src}, nil
}

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func contentsOf(t *testing.T, tpl loader.Template) string {
	t.Helper()
	return string(tpl.(stubTemplate).src.Contents)
}

func TestFilesystem_GetTemplateSearchesDirsInOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, second, "amp/page.html", "second")

	fsLoader := loader.NewFilesystem(stubCompiler{}, first, second)
	tpl, err := fsLoader.GetTemplate(context.Background(), "amp/page.html", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got := contentsOf(t, tpl); got != "second" {
		t.Fatalf("expected second dir to win, got %q", got)
	}

	writeFile(t, first, "amp/page.html", "first")
	tpl, err = fsLoader.GetTemplate(context.Background(), "amp/page.html", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got := contentsOf(t, tpl); got != "first" {
		t.Fatalf("expected first dir to win, got %q", got)
	}
}

func TestFilesystem_GetTemplateHonoursSkip(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "base.html", "first")
	writeFile(t, second, "base.html", "second")

	fsLoader := loader.NewFilesystem(stubCompiler{}, first, second)
	tpl, err := fsLoader.GetTemplate(context.Background(), "base.html", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}

	tpl, err = fsLoader.GetTemplate(context.Background(), "base.html", []loader.Origin{tpl.Origin()})
	if err != nil {
		t.Fatalf("get template with skip: %v", err)
	}
	if got := contentsOf(t, tpl); got != "second" {
		t.Fatalf("expected skipped origin to be bypassed, got %q", got)
	}
}

func TestFilesystem_NotFoundListsTriedPaths(t *testing.T) {
	dir := t.TempDir()
	fsLoader := loader.NewFilesystem(stubCompiler{}, dir)

	_, err := fsLoader.GetTemplate(context.Background(), "missing.html", nil)
	if !loader.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var nf *loader.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
	want := []string{filepath.Join(dir, "missing.html") + " (source does not exist)"}
	if diff := cmp.Diff(want, nf.Tried); diff != "" {
		t.Fatalf("tried mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesystem_TemplateSourcesReportsPathErrors(t *testing.T) {
	dir := t.TempDir()
	fsLoader := loader.NewFilesystem(stubCompiler{}, dir)

	var errs []error
	for _, err := range fsLoader.TemplateSources(context.Background(), "../escape.html") {
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], loader.ErrOutsideRoot) {
		t.Fatalf("expected outside root error, got %v", errs)
	}

	bad := loader.NewFilesystem(stubCompiler{}, string([]byte{0xff, 0xfe}))
	for _, err := range bad.TemplateSources(context.Background(), "page.html") {
		if !errors.Is(err, loader.ErrInvalidEncoding) {
			t.Fatalf("expected invalid encoding, got %v", err)
		}
	}
}

func TestFilesystem_LoadTemplateSourceUsesOverrideDirs(t *testing.T) {
	configured, override := t.TempDir(), t.TempDir()
	writeFile(t, configured, "page.html", "configured")
	writeFile(t, override, "page.html", "override")

	fsLoader := loader.NewFilesystem(stubCompiler{}, configured)

	src, err := fsLoader.LoadTemplateSource(context.Background(), "page.html", nil)
	if err != nil {
		t.Fatalf("load source: %v", err)
	}
	if string(src.Contents) != "configured" {
		t.Fatalf("expected configured dir, got %q", src.Contents)
	}

	src, err = fsLoader.LoadTemplateSource(context.Background(), "page.html", []string{override})
	if err != nil {
		t.Fatalf("load source: %v", err)
	}
	if string(src.Contents) != "override" {
		t.Fatalf("expected override dir, got %q", src.Contents)
	}
}

func TestFS_LoadsFromFileSystem(t *testing.T) {
	files := fstest.MapFS{
		"amp/page.html": {Data: []byte("amp page")},
	}
	fsLoader := loader.NewFS(stubCompiler{}, "embedded", files)

	tpl, err := fsLoader.GetTemplate(context.Background(), "amp/page.html", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got := contentsOf(t, tpl); got != "amp page" {
		t.Fatalf("unexpected contents %q", got)
	}
	if tpl.Origin().Name != "embedded:amp/page.html" {
		t.Fatalf("unexpected origin %q", tpl.Origin().Name)
	}

	if _, err := fsLoader.GetTemplate(context.Background(), "page.html", nil); !loader.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemory_GetTemplate(t *testing.T) {
	mem := loader.NewMemory(stubCompiler{}, map[string]string{"x": "hello"})

	tpl, err := mem.GetTemplate(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got := contentsOf(t, tpl); got != "hello" {
		t.Fatalf("unexpected contents %q", got)
	}
	if _, err := mem.GetTemplate(context.Background(), "y", nil); !loader.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCapabilityQueries(t *testing.T) {
	var l loader.Loader = loader.NewMemory(stubCompiler{}, nil)
	if _, ok := loader.AsSourceLoader(l); !ok {
		t.Fatalf("memory loader should enumerate sources")
	}
	if _, ok := loader.AsRawLoader(l); ok {
		t.Fatalf("memory loader should not return raw sources")
	}
	if _, ok := loader.AsRawLoader(loader.NewFilesystem(stubCompiler{})); !ok {
		t.Fatalf("filesystem loader should return raw sources")
	}
}

func TestRegistry_Resolve(t *testing.T) {
	reg := loader.NewRegistry()
	reg.MustRegister("memory", func() (loader.Loader, error) {
		return loader.NewMemory(stubCompiler{}, nil), nil
	})
	reg.MustRegister("broken", func() (loader.Loader, error) {
		return nil, errors.New("boom")
	})

	if err := reg.Register("memory", func() (loader.Loader, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, ok := reg.Resolve("memory"); !ok {
		t.Fatalf("expected memory to resolve")
	}
	if _, ok := reg.Resolve("broken"); ok {
		t.Fatalf("failing factory must not resolve")
	}
	if _, ok := reg.Resolve("unknown"); ok {
		t.Fatalf("unknown identifier must not resolve")
	}
	if diff := cmp.Diff([]string{"broken", "memory"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}
