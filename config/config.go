package config

import (
	"maps"
	"slices"

	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Config is a frozen client configuration. Everything except the extendable
// resolver is immutable and safe for concurrent use.
type Config struct {
	envs       map[uri.URI]wrap.Env
	interfaces map[uri.URI][]uri.URI
	chain      *resolver.Chain
	extendable *resolver.Extendable
}

// Env returns the environment bound to u.
func (c *Config) Env(u uri.URI) (wrap.Env, bool) {
	env, ok := c.envs[u]
	return env, ok
}

// EnvURIs returns every URI with a bound environment, sorted.
func (c *Config) EnvURIs() []uri.URI {
	return sortedKeys(c.envs)
}

// Implementations returns the implementations registered for iface, sorted.
func (c *Config) Implementations(iface uri.URI) []uri.URI {
	return slices.Clone(c.interfaces[iface])
}

// Interfaces returns every interface URI with at least one implementation, sorted.
func (c *Config) Interfaces() []uri.URI {
	return sortedKeys(c.interfaces)
}

// Chain returns the resolver chain.
func (c *Config) Chain() *resolver.Chain {
	return c.chain
}

// Extendable returns the runtime-extendable resolver at the end of the chain.
func (c *Config) Extendable() *resolver.Extendable {
	return c.extendable
}

// Equal reports whether two configs hold the same envs, interface sets and
// chain layout. Resolver identity is compared by description only.
func (c *Config) Equal(other *Config) bool {
	if !maps.EqualFunc(c.envs, other.envs, wrap.Env.Equal) {
		return false
	}
	if !maps.EqualFunc(c.interfaces, other.interfaces, slices.Equal[[]uri.URI]) {
		return false
	}
	a, b := c.chain.Entries(), other.chain.Entries()
	return slices.EqualFunc(a, b, func(x, y resolver.Entry) bool {
		return x.Tier == y.Tier && x.Channel == y.Channel && resolver.Describe(x.Like) == resolver.Describe(y.Like)
	})
}
