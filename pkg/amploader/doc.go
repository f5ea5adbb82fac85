// Package amploader makes template resolution aware of the per-request AMP
// context tag.
//
// Prefixing rewrites every requested name into the tag's namespace
// ("page.html" becomes "amp/page.html") and delegates to an ordered chain of
// backend loaders built from configured identifiers. Cached memoizes compiled
// templates under keys that include the tag, so one logical name can map to a
// different compiled template per namespace.
package amploader
