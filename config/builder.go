package config

import (
	"cmp"
	"maps"
	"slices"

	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Builder accumulates client configuration. No mutation fails: adding a
// binding twice replaces it in place and removing an absent binding is a
// no-op. The zero value is ready to use.
//
// Wrapper and package bindings share one tier. When both are bound to the
// same URI, the one registered first wins.
type Builder struct {
	envs       map[uri.URI]wrap.Env
	interfaces map[uri.URI]map[uri.URI]struct{}
	wrappers   map[uri.URI]binding
	packages   map[uri.URI]binding
	redirects  map[uri.URI]uri.URI
	resolvers  []resolver.Entry
	static     *resolver.Static
	extendable *resolver.Extendable
	seq        uint64
}

// binding is a wrapper or package entry with its registration order.
type binding struct {
	like resolver.Like
	seq  uint64
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) init() {
	if b.envs == nil {
		b.envs = make(map[uri.URI]wrap.Env)
		b.interfaces = make(map[uri.URI]map[uri.URI]struct{})
		b.wrappers = make(map[uri.URI]binding)
		b.packages = make(map[uri.URI]binding)
		b.redirects = make(map[uri.URI]uri.URI)
	}
}

// AddEnv merges env into the environment bound to u at the top level.
func (b *Builder) AddEnv(u uri.URI, env wrap.Env) *Builder {
	b.init()
	b.envs[u] = b.envs[u].Merge(env)
	return b
}

// SetEnv replaces the environment bound to u.
func (b *Builder) SetEnv(u uri.URI, env wrap.Env) *Builder {
	b.init()
	b.envs[u] = env
	return b
}

func (b *Builder) RemoveEnv(u uri.URI) *Builder {
	b.init()
	delete(b.envs, u)
	return b
}

// AddInterfaceImplementation records impl as an implementation of iface.
func (b *Builder) AddInterfaceImplementation(iface, impl uri.URI) *Builder {
	b.init()
	set, ok := b.interfaces[iface]
	if !ok {
		set = make(map[uri.URI]struct{})
		b.interfaces[iface] = set
	}
	set[impl] = struct{}{}
	return b
}

func (b *Builder) RemoveInterfaceImplementation(iface, impl uri.URI) *Builder {
	b.init()
	set, ok := b.interfaces[iface]
	if !ok {
		return b
	}
	delete(set, impl)
	if len(set) == 0 {
		delete(b.interfaces, iface)
	}
	return b
}

func (b *Builder) AddWasmWrapper(u uri.URI, w *wrap.WasmWrapper) *Builder {
	b.init()
	b.bind(b.wrappers, u, resolver.WrapperBinding{URI: u, Wrapper: w})
	return b
}

func (b *Builder) AddPluginWrapper(u uri.URI, w *wrap.PluginWrapper) *Builder {
	b.init()
	b.bind(b.wrappers, u, resolver.PluginWrapperBinding{URI: u, Wrapper: w})
	return b
}

// RemoveWrapper drops the wrapper bound to u, wasm or plugin.
func (b *Builder) RemoveWrapper(u uri.URI) *Builder {
	b.init()
	delete(b.wrappers, u)
	return b
}

func (b *Builder) AddWasmPackage(u uri.URI, p *wrap.WasmPackage) *Builder {
	b.init()
	b.bind(b.packages, u, resolver.PackageBinding{URI: u, Package: p})
	return b
}

func (b *Builder) AddPluginPackage(u uri.URI, p *wrap.PluginPackage) *Builder {
	b.init()
	b.bind(b.packages, u, resolver.PluginPackageBinding{URI: u, Package: p})
	return b
}

// bind stores l under u. A replacement keeps the position of the binding it
// replaces.
func (b *Builder) bind(m map[uri.URI]binding, u uri.URI, l resolver.Like) {
	if prev, ok := m[u]; ok {
		m[u] = binding{like: l, seq: prev.seq}
		return
	}
	b.seq++
	m[u] = binding{like: l, seq: b.seq}
}

// RemovePackage drops the package bound to u, wasm or plugin.
func (b *Builder) RemovePackage(u uri.URI) *Builder {
	b.init()
	delete(b.packages, u)
	return b
}

// AddRedirect rewrites from to to. A later redirect for the same source replaces it.
func (b *Builder) AddRedirect(from, to uri.URI) *Builder {
	b.init()
	b.redirects[from] = to
	return b
}

func (b *Builder) RemoveRedirect(from uri.URI) *Builder {
	b.init()
	delete(b.redirects, from)
	return b
}

// AddResolver appends l to the user tier of the chain.
func (b *Builder) AddResolver(l resolver.Like) *Builder {
	return b.appendResolver(l, resolver.ChannelAny)
}

func (b *Builder) AddWrapperResolver(l resolver.Like) *Builder {
	return b.appendResolver(l, resolver.ChannelWrapper)
}

func (b *Builder) AddRedirectResolver(l resolver.Like) *Builder {
	return b.appendResolver(l, resolver.ChannelRedirect)
}

func (b *Builder) AddPackageResolver(l resolver.Like) *Builder {
	return b.appendResolver(l, resolver.ChannelPackage)
}

func (b *Builder) appendResolver(l resolver.Like, ch resolver.Channel) *Builder {
	if l == nil {
		return b
	}
	b.resolvers = append(b.resolvers, resolver.Entry{
		Like:    l,
		Tier:    resolver.TierResolver,
		Channel: ch,
	})
	return b
}

// SetStaticResolver installs the static table consulted after user resolvers.
func (b *Builder) SetStaticResolver(s *resolver.Static) *Builder {
	b.static = s
	return b
}

// SetExtendableResolver installs the runtime-extendable table consulted last.
// Build creates an empty one when none is set.
func (b *Builder) SetExtendableResolver(e *resolver.Extendable) *Builder {
	b.extendable = e
	return b
}

// Build freezes the accumulated state into a Config and resets the builder.
func (b *Builder) Build() *Config {
	cfg := b.Snapshot()
	*b = Builder{}
	return cfg
}

// Snapshot freezes the accumulated state into a Config and leaves the builder
// as it was.
func (b *Builder) Snapshot() *Config {
	b.init()

	var entries []resolver.Entry
	for _, from := range sortedKeys(b.redirects) {
		entries = append(entries, resolver.Entry{
			Like: resolver.RedirectRule{From: from, To: b.redirects[from]},
			Tier: resolver.TierRedirect,
		})
	}
	bindings := slices.AppendSeq(slices.Collect(maps.Values(b.wrappers)), maps.Values(b.packages))
	slices.SortFunc(bindings, func(x, y binding) int { return cmp.Compare(x.seq, y.seq) })
	for _, bd := range bindings {
		entries = append(entries, resolver.Entry{Like: bd.like, Tier: resolver.TierBinding})
	}
	entries = append(entries, b.resolvers...)
	if b.static != nil {
		entries = append(entries, resolver.Entry{Like: resolver.Use{Resolver: b.static}, Tier: resolver.TierStatic})
	}
	ext := b.extendable
	if ext == nil {
		ext = resolver.NewExtendable()
	}
	entries = append(entries, resolver.Entry{Like: resolver.Use{Resolver: ext}, Tier: resolver.TierExtendable})

	interfaces := make(map[uri.URI][]uri.URI, len(b.interfaces))
	for iface, set := range b.interfaces {
		interfaces[iface] = sortedKeys(set)
	}

	cfg := &Config{
		envs:       maps.Clone(b.envs),
		interfaces: interfaces,
		chain:      resolver.NewChain(entries...),
		extendable: ext,
	}
	return cfg
}

func sortedKeys[V any](m map[uri.URI]V) []uri.URI {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, uri.URI.Compare)
	return keys
}
