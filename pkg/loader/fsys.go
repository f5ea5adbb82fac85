package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path"

	"github.com/flosch/pongo2/v6"
)

// FS loads templates from an fs.FS, typically an embed.FS, through pongo2's
// FS loader.
type FS struct {
	label    string
	files    fs.FS
	compiler Compiler
	host     *pongo2.FSLoader
}

var _ SourceLoader = (*FS)(nil)

// NewFS returns a loader over files. label prefixes origin names so templates
// from different file systems can be told apart in diagnostics.
func NewFS(compiler Compiler, label string, files fs.FS) *FS {
	return &FS{
		label:    label,
		files:    files,
		compiler: compiler,
		host:     pongo2.NewFSLoader(files),
	}
}

// TemplateSources yields a single origin, or ErrOutsideRoot for names that
// are not valid fs.FS paths.
func (l *FS) TemplateSources(_ context.Context, name string) iter.Seq2[Origin, error] {
	return func(yield func(Origin, error) bool) {
		clean := path.Clean(name)
		if !fs.ValidPath(clean) {
			yield(Origin{}, fmt.Errorf("%w: %q", ErrOutsideRoot, name))
			return
		}
		yield(Origin{Name: l.originName(clean), TemplateName: clean, Loader: l}, nil)
	}
}

// Contents reads the file behind origin.
func (l *FS) Contents(ctx context.Context, origin Origin) ([]byte, error) {
	if l.files == nil {
		return nil, errors.New("loader: fs is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r, err := l.host.Get(origin.TemplateName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, origin.Name)
		}
		return nil, fmt.Errorf("loader: read %q: %w", origin.Name, err)
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}
	return io.ReadAll(r)
}

// GetTemplate implements Loader.
func (l *FS) GetTemplate(ctx context.Context, name string, skip []Origin) (Template, error) {
	return Base{Sources: l, Compiler: l.compiler}.GetTemplate(ctx, name, skip)
}

func (l *FS) originName(name string) string {
	if l.label == "" {
		return name
	}
	return l.label + ":" + name
}
