package hostapi

import (
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// ResolverLikeType selects the variant a ResolverLikeVariant describes.
type ResolverLikeType uint8

const (
	LikeResolver ResolverLikeType = iota
	LikeRedirect
	LikeWasmPackage
	LikePluginPackage
	LikeWasmWrapper
	LikePluginWrapper
)

// ResolverLikeVariant describes a chain entry across the boundary. Handle
// refers to the resolver, package or wrapper; URI is the bound URI. For
// LikeRedirect, URI is the source and Target the destination.
type ResolverLikeVariant struct {
	URI    string
	Target string
	Handle Handle
	Type   ResolverLikeType
}

// EntryType selects the value of a static resolver entry.
type EntryType uint8

const (
	EntryURI EntryType = iota
	EntryWasmWrapper
	EntryPluginWrapper
	EntryWasmPackage
	EntryPluginPackage
)

// UriPackageOrWrapper is one static resolver entry. For EntryURI, Target
// is the URI to continue at and Handle is unused.
type UriPackageOrWrapper struct {
	URI    string
	Target string
	Handle Handle
	Type   EntryType
}

// RegisterResolver stores a Go resolver so it can be referenced by
// LikeResolver variants.
func (a *API) RegisterResolver(r resolver.Resolver) Handle {
	if r == nil {
		a.fail("register_resolver", errors.InvalidInput(errors.PhaseBoundary, "nil resolver"))
		return 0
	}
	return a.put("register_resolver", KindResolver, r)
}

// CreateStaticResolver builds a static resolver from entries. The first
// entry for a URI wins.
func (a *API) CreateStaticResolver(entries []UriPackageOrWrapper) Handle {
	out := make([]resolver.StaticEntry, 0, len(entries))
	for _, e := range entries {
		se, err := a.staticEntry(e)
		if err != nil {
			a.fail("create_static_resolver", err)
			return 0
		}
		out = append(out, se)
	}
	return a.put("create_static_resolver", KindStaticResolver, resolver.NewStatic(out...))
}

// CreateExtendableResolver returns an empty extendable resolver.
func (a *API) CreateExtendableResolver() Handle {
	return a.put("create_extendable_resolver", KindExtendableResolver, resolver.NewExtendable())
}

// ExtendResolver appends v to an extendable resolver. It may be called
// after a client using the resolver has been created.
func (a *API) ExtendResolver(r Handle, v ResolverLikeVariant) bool {
	val, _, err := a.table.get(r, KindExtendableResolver)
	if err != nil {
		a.fail("extend_resolver", err)
		return false
	}
	like, err := a.like(v)
	if err != nil {
		a.fail("extend_resolver", err)
		return false
	}
	val.(*resolver.Extendable).Add(like)
	return true
}

// ShrinkResolver removes entries bound to rawURI from an extendable resolver.
func (a *API) ShrinkResolver(r Handle, rawURI string) bool {
	val, _, err := a.table.get(r, KindExtendableResolver)
	if err != nil {
		a.fail("shrink_resolver", err)
		return false
	}
	u, ok := a.parseURI("shrink_resolver", rawURI)
	if !ok {
		return false
	}
	val.(*resolver.Extendable).Remove(u)
	return true
}

func (a *API) staticEntry(e UriPackageOrWrapper) (resolver.StaticEntry, error) {
	u, err := uri.Parse(e.URI)
	if err != nil {
		return resolver.StaticEntry{}, err
	}
	switch e.Type {
	case EntryURI:
		to, err := uri.Parse(e.Target)
		if err != nil {
			return resolver.StaticEntry{}, err
		}
		return resolver.StaticRedirect(u, to), nil
	case EntryWasmWrapper:
		v, _, err := a.table.get(e.Handle, KindWasmWrapper)
		if err != nil {
			return resolver.StaticEntry{}, err
		}
		return resolver.StaticWrapper(u, v.(*wrap.WasmWrapper)), nil
	case EntryPluginWrapper:
		v, _, err := a.table.get(e.Handle, KindPluginWrapper)
		if err != nil {
			return resolver.StaticEntry{}, err
		}
		return resolver.StaticWrapper(u, v.(*wrap.PluginWrapper)), nil
	case EntryWasmPackage:
		v, _, err := a.table.get(e.Handle, KindWasmPackage)
		if err != nil {
			return resolver.StaticEntry{}, err
		}
		return resolver.StaticPackage(u, v.(*wrap.WasmPackage)), nil
	case EntryPluginPackage:
		v, _, err := a.table.get(e.Handle, KindPluginPackage)
		if err != nil {
			return resolver.StaticEntry{}, err
		}
		return resolver.StaticPackage(u, v.(*wrap.PluginPackage)), nil
	default:
		return resolver.StaticEntry{}, errors.InvalidInput(errors.PhaseBoundary, "unknown static entry type")
	}
}

func (a *API) like(v ResolverLikeVariant) (resolver.Like, error) {
	if v.Type == LikeResolver {
		r, _, err := a.table.get(v.Handle, KindResolver, KindStaticResolver, KindExtendableResolver)
		if err != nil {
			return nil, err
		}
		return resolver.Use{Resolver: r.(resolver.Resolver)}, nil
	}

	u, err := uri.Parse(v.URI)
	if err != nil {
		return nil, err
	}
	switch v.Type {
	case LikeRedirect:
		to, err := uri.Parse(v.Target)
		if err != nil {
			return nil, err
		}
		return resolver.RedirectRule{From: u, To: to}, nil
	case LikeWasmPackage:
		p, _, err := a.table.get(v.Handle, KindWasmPackage)
		if err != nil {
			return nil, err
		}
		return resolver.PackageBinding{URI: u, Package: p.(*wrap.WasmPackage)}, nil
	case LikePluginPackage:
		p, _, err := a.table.get(v.Handle, KindPluginPackage)
		if err != nil {
			return nil, err
		}
		return resolver.PluginPackageBinding{URI: u, Package: p.(*wrap.PluginPackage)}, nil
	case LikeWasmWrapper:
		w, _, err := a.table.get(v.Handle, KindWasmWrapper)
		if err != nil {
			return nil, err
		}
		return resolver.WrapperBinding{URI: u, Wrapper: w.(*wrap.WasmWrapper)}, nil
	case LikePluginWrapper:
		w, _, err := a.table.get(v.Handle, KindPluginWrapper)
		if err != nil {
			return nil, err
		}
		return resolver.PluginWrapperBinding{URI: u, Wrapper: w.(*wrap.PluginWrapper)}, nil
	default:
		return nil, errors.InvalidInput(errors.PhaseBoundary, "unknown resolver-like type")
	}
}
