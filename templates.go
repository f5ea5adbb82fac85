package amptools

import (
	"embed"
	"io/fs"
)

//go:embed templates
var embeddedTemplates embed.FS

// EmbeddedTemplates exposes the built-in layouts: "base.html" and its AMP
// counterpart "amp/base.html". Pages extend whichever layout matches their
// namespace.
func EmbeddedTemplates() fs.FS {
	fsys, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		panic(err)
	}
	return fsys
}
