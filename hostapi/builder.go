package hostapi

import (
	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// NewBuilderConfig creates a config builder handle.
func (a *API) NewBuilderConfig() Handle {
	return a.put("new_builder_config", KindBuilder, config.NewBuilder())
}

func (a *API) builder(op string, h Handle) (*config.Builder, bool) {
	v, _, err := a.table.get(h, KindBuilder)
	if err != nil {
		a.fail(op, err)
		return nil, false
	}
	return v.(*config.Builder), true
}

// withURI runs fn against the builder behind b once raw parses.
func (a *API) withURI(op string, b Handle, raw string, fn func(*config.Builder, uri.URI) bool) bool {
	builder, ok := a.builder(op, b)
	if !ok {
		return false
	}
	u, ok := a.parseURI(op, raw)
	if !ok {
		return false
	}
	return fn(builder, u)
}

func (a *API) withEnv(op string, b Handle, rawURI, envText string, apply func(*config.Builder, uri.URI, wrap.Env)) bool {
	return a.withURI(op, b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		env, err := wrap.ParseEnv(envText)
		if err != nil {
			a.fail(op, err)
			return false
		}
		apply(builder, u, env)
		return true
	})
}

// AddEnv merges env into the environment bound to rawURI.
func (a *API) AddEnv(b Handle, rawURI, envText string) bool {
	return a.withEnv("add_env", b, rawURI, envText, func(builder *config.Builder, u uri.URI, env wrap.Env) {
		builder.AddEnv(u, env)
	})
}

// SetEnv replaces the environment bound to rawURI.
func (a *API) SetEnv(b Handle, rawURI, envText string) bool {
	return a.withEnv("set_env", b, rawURI, envText, func(builder *config.Builder, u uri.URI, env wrap.Env) {
		builder.SetEnv(u, env)
	})
}

func (a *API) RemoveEnv(b Handle, rawURI string) bool {
	return a.withURI("remove_env", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		builder.RemoveEnv(u)
		return true
	})
}

func (a *API) AddInterfaceImplementation(b Handle, iface, impl string) bool {
	return a.withURI("add_interface_implementation", b, iface, func(builder *config.Builder, i uri.URI) bool {
		u, ok := a.parseURI("add_interface_implementation", impl)
		if !ok {
			return false
		}
		builder.AddInterfaceImplementation(i, u)
		return true
	})
}

func (a *API) RemoveInterfaceImplementation(b Handle, iface, impl string) bool {
	return a.withURI("remove_interface_implementation", b, iface, func(builder *config.Builder, i uri.URI) bool {
		u, ok := a.parseURI("remove_interface_implementation", impl)
		if !ok {
			return false
		}
		builder.RemoveInterfaceImplementation(i, u)
		return true
	})
}

func (a *API) AddWasmWrapper(b Handle, rawURI string, w Handle) bool {
	return a.withURI("add_wasm_wrapper", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		v, _, err := a.table.get(w, KindWasmWrapper)
		if err != nil {
			a.fail("add_wasm_wrapper", err)
			return false
		}
		builder.AddWasmWrapper(u, v.(*wrap.WasmWrapper))
		return true
	})
}

func (a *API) AddPluginWrapper(b Handle, rawURI string, w Handle) bool {
	return a.withURI("add_plugin_wrapper", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		v, _, err := a.table.get(w, KindPluginWrapper)
		if err != nil {
			a.fail("add_plugin_wrapper", err)
			return false
		}
		builder.AddPluginWrapper(u, v.(*wrap.PluginWrapper))
		return true
	})
}

func (a *API) RemoveWrapper(b Handle, rawURI string) bool {
	return a.withURI("remove_wrapper", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		builder.RemoveWrapper(u)
		return true
	})
}

func (a *API) AddWasmPackage(b Handle, rawURI string, p Handle) bool {
	return a.withURI("add_wasm_package", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		v, _, err := a.table.get(p, KindWasmPackage)
		if err != nil {
			a.fail("add_wasm_package", err)
			return false
		}
		builder.AddWasmPackage(u, v.(*wrap.WasmPackage))
		return true
	})
}

func (a *API) AddPluginPackage(b Handle, rawURI string, p Handle) bool {
	return a.withURI("add_plugin_package", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		v, _, err := a.table.get(p, KindPluginPackage)
		if err != nil {
			a.fail("add_plugin_package", err)
			return false
		}
		builder.AddPluginPackage(u, v.(*wrap.PluginPackage))
		return true
	})
}

func (a *API) RemovePackage(b Handle, rawURI string) bool {
	return a.withURI("remove_package", b, rawURI, func(builder *config.Builder, u uri.URI) bool {
		builder.RemovePackage(u)
		return true
	})
}

func (a *API) AddRedirect(b Handle, from, to string) bool {
	return a.withURI("add_redirect", b, from, func(builder *config.Builder, f uri.URI) bool {
		t, ok := a.parseURI("add_redirect", to)
		if !ok {
			return false
		}
		builder.AddRedirect(f, t)
		return true
	})
}

func (a *API) RemoveRedirect(b Handle, from string) bool {
	return a.withURI("remove_redirect", b, from, func(builder *config.Builder, f uri.URI) bool {
		builder.RemoveRedirect(f)
		return true
	})
}

func (a *API) AddResolver(b Handle, v ResolverLikeVariant) bool {
	return a.addResolver("add_resolver", b, v, (*config.Builder).AddResolver)
}

func (a *API) AddWrapperResolver(b Handle, v ResolverLikeVariant) bool {
	return a.addResolver("add_wrapper_resolver", b, v, (*config.Builder).AddWrapperResolver)
}

func (a *API) AddRedirectResolver(b Handle, v ResolverLikeVariant) bool {
	return a.addResolver("add_redirect_resolver", b, v, (*config.Builder).AddRedirectResolver)
}

func (a *API) AddPackageResolver(b Handle, v ResolverLikeVariant) bool {
	return a.addResolver("add_package_resolver", b, v, (*config.Builder).AddPackageResolver)
}

func (a *API) addResolver(op string, b Handle, v ResolverLikeVariant, add func(*config.Builder, resolver.Like) *config.Builder) bool {
	builder, ok := a.builder(op, b)
	if !ok {
		return false
	}
	like, err := a.like(v)
	if err != nil {
		a.fail(op, err)
		return false
	}
	add(builder, like)
	return true
}

// SetStaticResolver installs a static resolver handle as the builder's
// built-in static table.
func (a *API) SetStaticResolver(b Handle, r Handle) bool {
	builder, ok := a.builder("set_static_resolver", b)
	if !ok {
		return false
	}
	v, _, err := a.table.get(r, KindStaticResolver)
	if err != nil {
		a.fail("set_static_resolver", err)
		return false
	}
	builder.SetStaticResolver(v.(*resolver.Static))
	return true
}

// SetExtendableResolver installs an extendable resolver handle as the
// builder's built-in extendable table.
func (a *API) SetExtendableResolver(b Handle, r Handle) bool {
	builder, ok := a.builder("set_extendable_resolver", b)
	if !ok {
		return false
	}
	v, _, err := a.table.get(r, KindExtendableResolver)
	if err != nil {
		a.fail("set_extendable_resolver", err)
		return false
	}
	builder.SetExtendableResolver(v.(*resolver.Extendable))
	return true
}
