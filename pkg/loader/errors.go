package loader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound reports that no loader could resolve a template.
	ErrTemplateNotFound = errors.New("loader: template not found")
	// ErrInvalidEncoding reports a template directory that is not valid UTF-8.
	// It is a deployment error and must not be treated as a missing template.
	ErrInvalidEncoding = errors.New("loader: invalid path encoding")
	// ErrOutsideRoot reports a path that escapes a loader's root directory.
	ErrOutsideRoot = errors.New("loader: path outside root")
)

// NotFoundError carries the name that failed to resolve and the candidate
// locations that were tried.
type NotFoundError struct {
	Name  string
	Tried []string
}

func (e *NotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("loader: template %q not found", e.Name)
	}
	return fmt.Sprintf("loader: template %q not found, tried: %s", e.Name, strings.Join(e.Tried, ", "))
}

// Is makes errors.Is(err, ErrTemplateNotFound) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrTemplateNotFound
}

// IsNotFound reports whether err means the template does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// TriedNames returns the locations recorded by a NotFoundError in err, or
// fallback when err carries none.
func TriedNames(err error, fallback string) []string {
	var nf *NotFoundError
	if errors.As(err, &nf) && len(nf.Tried) > 0 {
		return nf.Tried
	}
	return []string{fallback}
}
