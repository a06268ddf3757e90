package resolver

import (
	"context"

	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Resolver maps a URI to a Result for a single hop. A nil Result with a nil
// error means the resolver does not handle the URI.
type Resolver interface {
	TryResolve(ctx context.Context, u uri.URI) (Result, error)
}

// Func adapts a function to Resolver.
type Func func(ctx context.Context, u uri.URI) (Result, error)

func (f Func) TryResolve(ctx context.Context, u uri.URI) (Result, error) {
	return f(ctx, u)
}

// Result is the outcome of one resolution hop. The variants are URIResult,
// WrapperResult and PackageResult; the set is closed.
type Result interface {
	result()
}

// URIResult continues resolution at another URI.
type URIResult struct {
	URI uri.URI
}

// WrapperResult terminates resolution with a wrapper.
type WrapperResult struct {
	Wrapper wrap.Wrapper
}

// PackageResult terminates resolution with a package still to be loaded.
type PackageResult struct {
	Package wrap.Package
}

func (URIResult) result()     {}
func (WrapperResult) result() {}
func (PackageResult) result() {}

// ResultKind names the variant of r.
func ResultKind(r Result) string {
	switch r.(type) {
	case URIResult:
		return "uri"
	case WrapperResult:
		return "wrapper"
	case PackageResult:
		return "package"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}

// Channel tags the resolution channel an appended resolver was registered on.
type Channel uint8

const (
	ChannelAny Channel = iota
	ChannelWrapper
	ChannelRedirect
	ChannelPackage
)

func (c Channel) String() string {
	switch c {
	case ChannelWrapper:
		return "wrapper"
	case ChannelRedirect:
		return "redirect"
	case ChannelPackage:
		return "package"
	default:
		return "any"
	}
}
