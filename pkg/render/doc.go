// Package render compiles and executes templates with pongo2. Engine is the
// loader.Compiler the loader backends hand raw sources to; compiled templates
// expose the active context tag to template code as the "amp" variable.
package render
