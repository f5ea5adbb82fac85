package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
)

// Filesystem loads templates from an ordered list of directories on disk.
// Reads go through pongo2's local filesystem loader.
type Filesystem struct {
	dirs     []string
	compiler Compiler
	host     *pongo2.LocalFilesystemLoader
}

var (
	_ SourceLoader = (*Filesystem)(nil)
	_ RawLoader    = (*Filesystem)(nil)
)

// NewFilesystem returns a loader searching dirs in order.
func NewFilesystem(compiler Compiler, dirs ...string) *Filesystem {
	cleaned := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		cleaned = append(cleaned, dir)
	}
	return &Filesystem{
		dirs:     cleaned,
		compiler: compiler,
		host:     pongo2.MustNewLocalFileSystemLoader(""),
	}
}

// Dirs returns the configured search directories.
func (f *Filesystem) Dirs() []string {
	return append([]string(nil), f.dirs...)
}

// TemplateSources yields one origin per directory. Directories that are not
// valid UTF-8 yield ErrInvalidEncoding, names escaping a directory yield
// ErrOutsideRoot; the caller decides whether to keep iterating.
func (f *Filesystem) TemplateSources(_ context.Context, name string) iter.Seq2[Origin, error] {
	return f.sources(name, f.dirs)
}

func (f *Filesystem) sources(name string, dirs []string) iter.Seq2[Origin, error] {
	return func(yield func(Origin, error) bool) {
		for _, dir := range dirs {
			path, err := safeJoin(dir, name)
			if err != nil {
				if !yield(Origin{}, err) {
					return
				}
				continue
			}
			if !yield(Origin{Name: path, TemplateName: name, Loader: f}, nil) {
				return
			}
		}
	}
}

// Contents reads the file behind origin.
func (f *Filesystem) Contents(_ context.Context, origin Origin) ([]byte, error) {
	r, err := f.host.Get(origin.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, origin.Name)
		}
		return nil, fmt.Errorf("loader: read %q: %w", origin.Name, err)
	}
	return io.ReadAll(r)
}

// GetTemplate implements Loader.
func (f *Filesystem) GetTemplate(ctx context.Context, name string, skip []Origin) (Template, error) {
	return Base{Sources: f, Compiler: f.compiler}.GetTemplate(ctx, name, skip)
}

// LoadTemplateSource returns the first existing source for name. A non-empty
// dirs replaces the configured directories for this lookup.
func (f *Filesystem) LoadTemplateSource(ctx context.Context, name string, dirs []string) (*Source, error) {
	if len(dirs) == 0 {
		dirs = f.dirs
	}

	var tried []string
	for origin, err := range f.sources(name, dirs) {
		if err != nil {
			if errors.Is(err, ErrOutsideRoot) {
				continue
			}
			return nil, err
		}
		contents, err := f.Contents(ctx, origin)
		if err != nil {
			if IsNotFound(err) {
				tried = append(tried, origin.Name)
				continue
			}
			return nil, err
		}
		return &Source{Origin: origin, Contents: contents}, nil
	}
	return nil, &NotFoundError{Name: name, Tried: tried}
}

func safeJoin(dir, name string) (string, error) {
	if !utf8.ValidString(dir) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEncoding, dir)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("loader: resolve %q: %w", dir, err)
	}

	joined := filepath.FromSlash(name)
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(root, joined)
	}
	joined = filepath.Clean(joined)

	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside %q", ErrOutsideRoot, name, root)
	}
	return joined, nil
}
