package resolver

import (
	"context"

	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// StaticEntry is one fixed mapping of a static resolver.
type StaticEntry struct {
	Result Result
	URI    uri.URI
}

// StaticWrapper maps u to a wrapper.
func StaticWrapper(u uri.URI, w wrap.Wrapper) StaticEntry {
	return StaticEntry{URI: u, Result: WrapperResult{Wrapper: w}}
}

// StaticPackage maps u to a package.
func StaticPackage(u uri.URI, p wrap.Package) StaticEntry {
	return StaticEntry{URI: u, Result: PackageResult{Package: p}}
}

// StaticRedirect maps u to another URI.
func StaticRedirect(u, to uri.URI) StaticEntry {
	return StaticEntry{URI: u, Result: URIResult{URI: to}}
}

// Static is a lookup table fixed at construction. When a URI appears more
// than once the first entry wins.
type Static struct {
	entries map[uri.URI]Result
}

func NewStatic(entries ...StaticEntry) *Static {
	m := make(map[uri.URI]Result, len(entries))
	for _, e := range entries {
		if e.Result == nil {
			continue
		}
		if _, exists := m[e.URI]; exists {
			continue
		}
		m[e.URI] = e.Result
	}
	return &Static{entries: m}
}

func (s *Static) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if s == nil {
		return nil, nil
	}
	return s.entries[u], nil
}

// Len returns the number of distinct URIs in the table.
func (s *Static) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
