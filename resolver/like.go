package resolver

import (
	"context"
	"fmt"

	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Like is anything that can sit in a resolution chain. The six variants are
// Use, RedirectRule, PackageBinding, PluginPackageBinding, WrapperBinding and
// PluginWrapperBinding; the set is closed.
type Like interface {
	Resolver
	like()
}

// Use places a full resolver in the chain.
type Use struct {
	Resolver Resolver
}

// RedirectRule rewrites From to To.
type RedirectRule struct {
	From uri.URI
	To   uri.URI
}

// PackageBinding binds a URI to a bytecode package.
type PackageBinding struct {
	Package *wrap.WasmPackage
	URI     uri.URI
}

// PluginPackageBinding binds a URI to a plugin package.
type PluginPackageBinding struct {
	Package *wrap.PluginPackage
	URI     uri.URI
}

// WrapperBinding binds a URI to a bytecode wrapper.
type WrapperBinding struct {
	Wrapper *wrap.WasmWrapper
	URI     uri.URI
}

// PluginWrapperBinding binds a URI to a plugin wrapper.
type PluginWrapperBinding struct {
	Wrapper *wrap.PluginWrapper
	URI     uri.URI
}

func (l Use) TryResolve(ctx context.Context, u uri.URI) (Result, error) {
	if l.Resolver == nil {
		return nil, nil
	}
	return l.Resolver.TryResolve(ctx, u)
}

func (l RedirectRule) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if u != l.From {
		return nil, nil
	}
	return URIResult{URI: l.To}, nil
}

func (l PackageBinding) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if u != l.URI || l.Package == nil {
		return nil, nil
	}
	return PackageResult{Package: l.Package}, nil
}

func (l PluginPackageBinding) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if u != l.URI || l.Package == nil {
		return nil, nil
	}
	return PackageResult{Package: l.Package}, nil
}

func (l WrapperBinding) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if u != l.URI || l.Wrapper == nil {
		return nil, nil
	}
	return WrapperResult{Wrapper: l.Wrapper}, nil
}

func (l PluginWrapperBinding) TryResolve(_ context.Context, u uri.URI) (Result, error) {
	if u != l.URI || l.Wrapper == nil {
		return nil, nil
	}
	return WrapperResult{Wrapper: l.Wrapper}, nil
}

func (Use) like()                  {}
func (RedirectRule) like()         {}
func (PackageBinding) like()       {}
func (PluginPackageBinding) like() {}
func (WrapperBinding) like()       {}
func (PluginWrapperBinding) like() {}

// Key returns the URI a single-URI variant is bound to. Use has no key.
func Key(l Like) (uri.URI, bool) {
	switch v := l.(type) {
	case RedirectRule:
		return v.From, true
	case PackageBinding:
		return v.URI, true
	case PluginPackageBinding:
		return v.URI, true
	case WrapperBinding:
		return v.URI, true
	case PluginWrapperBinding:
		return v.URI, true
	default:
		return uri.URI{}, false
	}
}

// Describe renders l for resolution histories.
func Describe(l Like) string {
	switch v := l.(type) {
	case Use:
		return fmt.Sprintf("resolver %T", v.Resolver)
	case RedirectRule:
		return "redirect " + v.From.String() + " -> " + v.To.String()
	case PackageBinding:
		return "wasm package " + v.URI.String()
	case PluginPackageBinding:
		return "plugin package " + v.URI.String()
	case WrapperBinding:
		return "wasm wrapper " + v.URI.String()
	case PluginWrapperBinding:
		return "plugin wrapper " + v.URI.String()
	default:
		return "unknown"
	}
}
