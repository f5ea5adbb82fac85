// Package amp computes the per-request context tag that selects which template
// namespace applies to a request. The tag is detected once by Middleware and
// carried on the request context; loaders read it back through a Detector.
package amp
