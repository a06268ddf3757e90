package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wrap-client/codec"
	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/engine"
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/internal/wasmtest"
	"github.com/wippyai/wrap-client/resolver"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

func tagged(tag string) *wrap.PluginWrapper {
	return wrap.NewPluginWrapper(wrap.PluginFunc(func(_ context.Context, method string, _ []byte, _ wrap.Invoker) ([]byte, error) {
		return []byte(tag + ":" + method), nil
	}))
}

// envModule returns the env value of "k" it sees during each call.
type envModule struct {
	wrap.EnvSlot
}

func (m *envModule) Invoke(context.Context, string, []byte, wrap.Invoker) ([]byte, error) {
	v, ok := m.EnvValue("k")
	if !ok {
		return []byte("none"), nil
	}
	return v, nil
}

func newClient(t *testing.T, cfg *config.Config, opts ...Option) *Client {
	t.Helper()
	c, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func call(t *testing.T, c *Client, raw, method string) string {
	t.Helper()
	out, err := c.Invoke(context.Background(), uri.MustParse(raw), method, nil, nil)
	if err != nil {
		t.Fatalf("Invoke(%s#%s): %v", raw, method, err)
	}
	return string(out)
}

func TestClient_NotFound(t *testing.T) {
	c := newClient(t, nil)
	u := uri.MustParse("wrap://ns/missing")

	res, err := c.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve returned error for unmatched URI: %v", err)
	}
	if res.Found() {
		t.Fatal("expected not found")
	}

	if _, err := c.LoadWrapper(context.Background(), u); !stderrors.Is(err, errors.ErrNotFound) {
		t.Fatalf("LoadWrapper err = %v, want not found", err)
	}
	if _, err := c.Invoke(context.Background(), u, "m", nil, nil); !stderrors.Is(err, errors.ErrNotFound) {
		t.Fatalf("Invoke err = %v, want not found", err)
	}
}

func TestClient_ExplicitBindingBeatsResolver(t *testing.T) {
	u := uri.MustParse("wrap://ns/target")
	explicit := tagged("explicit")
	cfg := config.NewBuilder().
		AddResolver(resolver.Use{Resolver: resolver.Func(func(context.Context, uri.URI) (resolver.Result, error) {
			return resolver.WrapperResult{Wrapper: tagged("general")}, nil
		})}).
		AddPluginWrapper(u, explicit).
		Build()
	c := newClient(t, cfg)

	w, err := c.LoadWrapper(context.Background(), u)
	if err != nil {
		t.Fatalf("LoadWrapper: %v", err)
	}
	if w != explicit {
		t.Fatal("explicit binding did not win over appended resolver")
	}
}

func TestClient_ResolveIsIdempotent(t *testing.T) {
	a := uri.MustParse("wrap://ns/a")
	b := uri.MustParse("wrap://ns/b")
	w := tagged("b")
	c := newClient(t, config.NewBuilder().AddRedirect(a, b).AddPluginWrapper(b, w).Build())

	first, err := c.Resolve(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Resolve(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if first.Wrapper != second.Wrapper || first.URI != second.URI {
		t.Fatal("resolutions differ")
	}
	if fmt.Sprint(first.Path()) != fmt.Sprint(second.Path()) {
		t.Fatalf("paths differ: %v vs %v", first.Path(), second.Path())
	}
}

func TestClient_RedirectEndToEnd(t *testing.T) {
	alpha := uri.MustParse("wrap://ns/alpha")
	beta := uri.MustParse("wrap://ns/beta")
	betaWrapper := tagged("beta")
	c := newClient(t, config.NewBuilder().
		AddRedirect(alpha, beta).
		AddPluginWrapper(beta, betaWrapper).
		Build())

	w, err := c.LoadWrapper(context.Background(), alpha)
	if err != nil {
		t.Fatalf("LoadWrapper: %v", err)
	}
	if w != betaWrapper {
		t.Fatal("alpha did not resolve to the beta wrapper")
	}
	if got := call(t, c, "wrap://ns/alpha", "getValue"); got != "beta:getValue" {
		t.Fatalf("got %q", got)
	}
}

func TestClient_StaticPackageLoadedPerInvocation(t *testing.T) {
	x := uri.MustParse("wrap://x")
	var loads atomic.Int32
	pkgA := wrap.NewPluginPackage(func(context.Context) (wrap.PluginModule, error) {
		loads.Add(1)
		return wrap.PluginFunc(func(_ context.Context, method string, args []byte, _ wrap.Invoker) ([]byte, error) {
			if method != "getValue" {
				return nil, fmt.Errorf("unknown method %s", method)
			}
			return append([]byte("value:"), args...), nil
		}), nil
	})
	cfg := config.NewBuilder().
		SetStaticResolver(resolver.NewStatic(resolver.StaticPackage(x, pkgA))).
		Build()
	c := newClient(t, cfg)

	for i := 1; i <= 3; i++ {
		out, err := c.Invoke(context.Background(), x, "getValue", []byte("42"), nil)
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if string(out) != "value:42" {
			t.Fatalf("got %q", out)
		}
		if n := loads.Load(); n != int32(i) {
			t.Fatalf("after %d invocations package loaded %d times", i, n)
		}
	}
}

func TestClient_InvocationFailed(t *testing.T) {
	u := uri.MustParse("wrap://ns/broken")
	boom := stderrors.New("boom")
	w := wrap.NewPluginWrapper(wrap.PluginFunc(func(context.Context, string, []byte, wrap.Invoker) ([]byte, error) {
		return nil, boom
	}))
	c := newClient(t, config.NewBuilder().AddPluginWrapper(u, w).Build())

	_, err := c.Invoke(context.Background(), u, "explode", nil, nil)
	var we *errors.Error
	if !stderrors.As(err, &we) || we.Kind != errors.KindInvocation {
		t.Fatalf("err = %v, want invocation failure", err)
	}
	if we.URI != u.String() || we.Method != "explode" {
		t.Fatalf("context lost: %+v", we)
	}
	if !stderrors.Is(err, boom) {
		t.Fatal("cause not preserved")
	}
}

func TestClient_ResolutionErrorsPropagateUnchanged(t *testing.T) {
	a := uri.MustParse("wrap://ns/a")
	b := uri.MustParse("wrap://ns/b")
	c := newClient(t, config.NewBuilder().AddRedirect(a, b).AddRedirect(b, a).Build())

	_, err := c.Invoke(context.Background(), a, "m", nil, nil)
	if !stderrors.Is(err, errors.ErrRedirectLoop) {
		t.Fatalf("err = %v, want redirect loop", err)
	}
	if stderrors.Is(err, errors.ErrInvocation) {
		t.Fatal("resolution error was wrapped as invocation failure")
	}

	pkg := wrap.NewPluginPackage(func(context.Context) (wrap.PluginModule, error) {
		return nil, stderrors.New("cannot instantiate")
	})
	u := uri.MustParse("wrap://ns/pkg")
	c = newClient(t, config.NewBuilder().AddPluginPackage(u, pkg).Build())
	_, err = c.Invoke(context.Background(), u, "m", nil, nil)
	if !stderrors.Is(err, errors.ErrPackageLoad) {
		t.Fatalf("err = %v, want package load failure", err)
	}
}

func TestClient_EnvLookupOrder(t *testing.T) {
	alpha := uri.MustParse("wrap://ns/alpha")
	mid := uri.MustParse("wrap://ns/mid")
	beta := uri.MustParse("wrap://ns/beta")
	bare := uri.MustParse("wrap://ns/bare")

	module := &envModule{}
	w := wrap.NewPluginWrapper(module)

	build := func(b *config.Builder) *Client {
		return newClient(t, b.
			AddRedirect(alpha, mid).
			AddRedirect(mid, beta).
			AddPluginWrapper(beta, w).
			AddPluginWrapper(bare, w).
			Build())
	}

	tests := []struct {
		name     string
		builder  *config.Builder
		target   uri.URI
		override *wrap.Env
		want     string
	}{
		{
			name:    "requested uri wins over final",
			builder: config.NewBuilder().AddEnv(alpha, wrap.MustEnv(`{"k":"alpha"}`)).AddEnv(beta, wrap.MustEnv(`{"k":"beta"}`)),
			target:  alpha,
			want:    `"alpha"`,
		},
		{
			name:    "final uri when requested has none",
			builder: config.NewBuilder().AddEnv(beta, wrap.MustEnv(`{"k":"beta"}`)),
			target:  alpha,
			want:    `"beta"`,
		},
		{
			name:    "intermediate hop ignored",
			builder: config.NewBuilder().AddEnv(mid, wrap.MustEnv(`{"k":"mid"}`)),
			target:  alpha,
			want:    "none",
		},
		{
			name:     "override wins",
			builder:  config.NewBuilder().AddEnv(alpha, wrap.MustEnv(`{"k":"alpha"}`)),
			target:   alpha,
			override: func() *wrap.Env { e := wrap.MustEnv(`{"k":"override"}`); return &e }(),
			want:     `"override"`,
		},
		{
			name:    "no env",
			builder: config.NewBuilder(),
			target:  bare,
			want:    "none",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := build(tt.builder)
			out, err := c.Invoke(context.Background(), tt.target, "m", nil, tt.override)
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if string(out) != tt.want {
				t.Fatalf("env k = %s, want %s", out, tt.want)
			}
		})
	}
}

func TestClient_EnvAddThenSet(t *testing.T) {
	u := uri.MustParse("wrap://ns/env")
	module := &envModule{}
	w := wrap.NewPluginWrapper(module)

	c := newClient(t, config.NewBuilder().
		AddPluginWrapper(u, w).
		AddEnv(u, wrap.MustEnv(`{"a":1}`)).
		AddEnv(u, wrap.MustEnv(`{"b":2}`)).
		Build())
	if _, err := c.Invoke(context.Background(), u, "m", nil, nil); err != nil {
		t.Fatal(err)
	}
	if !w.Env().Equal(wrap.MustEnv(`{"a":1,"b":2}`)) {
		t.Fatalf("module env = %s", w.Env())
	}

	c = newClient(t, config.NewBuilder().
		AddPluginWrapper(u, w).
		AddEnv(u, wrap.MustEnv(`{"a":1}`)).
		AddEnv(u, wrap.MustEnv(`{"b":2}`)).
		SetEnv(u, wrap.MustEnv(`{"c":3}`)).
		Build())
	if _, err := c.Invoke(context.Background(), u, "m", nil, nil); err != nil {
		t.Fatal(err)
	}
	if !w.Env().Equal(wrap.MustEnv(`{"c":3}`)) {
		t.Fatalf("module env = %s", w.Env())
	}
}

func TestClient_ConcurrentOverridesDoNotCrossTalk(t *testing.T) {
	u := uri.MustParse("wrap://ns/shared")
	c := newClient(t, config.NewBuilder().AddPluginWrapper(u, wrap.NewPluginWrapper(&envModule{})).Build())

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env := wrap.MustEnv(fmt.Sprintf(`{"k":%d}`, i))
			out, err := c.Invoke(context.Background(), u, "m", nil, &env)
			if err == nil && string(out) != fmt.Sprint(i) {
				err = fmt.Errorf("call %d saw env %s", i, out)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
}

// Pins the chain order: redirects, wrapper bindings, package bindings,
// user resolvers in append order regardless of channel, static, extendable.
func TestClient_ResolverOrderRegression(t *testing.T) {
	u := uri.MustParse("wrap://ns/pinned")
	target := uri.MustParse("wrap://ns/redirected")

	userResolver := func(tag string) resolver.Like {
		return resolver.PluginWrapperBinding{URI: u, Wrapper: tagged(tag)}
	}
	pkg := wrap.NewPluginPackage(func(context.Context) (wrap.PluginModule, error) {
		return wrap.PluginFunc(func(context.Context, string, []byte, wrap.Invoker) ([]byte, error) {
			return []byte("package:m"), nil
		}), nil
	})

	layers := []struct {
		name  string
		apply func(*config.Builder)
	}{
		{"extendable", func(b *config.Builder) {
			b.SetExtendableResolver(resolver.NewExtendable(userResolver("extendable")))
		}},
		{"static", func(b *config.Builder) {
			b.SetStaticResolver(resolver.NewStatic(resolver.StaticWrapper(u, tagged("static"))))
		}},
		{"package-channel", func(b *config.Builder) { b.AddPackageResolver(userResolver("package-channel")) }},
		{"redirect-channel", func(b *config.Builder) { b.AddRedirectResolver(userResolver("redirect-channel")) }},
		{"wrapper-channel", func(b *config.Builder) { b.AddWrapperResolver(userResolver("wrapper-channel")) }},
		{"any", func(b *config.Builder) { b.AddResolver(userResolver("any")) }},
		{"package", func(b *config.Builder) { b.AddPluginPackage(u, pkg) }},
		{"wrapper", func(b *config.Builder) { b.AddPluginWrapper(u, tagged("wrapper")) }},
		{"redirect", func(b *config.Builder) {
			b.AddRedirect(u, target).AddPluginWrapper(target, tagged("redirect"))
		}},
	}

	// Each step adds a higher-precedence layer; user resolvers are added in
	// reverse so the earliest appended one must win.
	want := []string{
		"extendable", "static",
		"package-channel", "package-channel", "package-channel", "package-channel",
		"package", "wrapper", "redirect",
	}
	for n := 1; n <= len(layers); n++ {
		b := config.NewBuilder()
		for _, l := range layers[:n] {
			l.apply(b)
		}
		got := call(t, newClient(t, b.Build()), u.String(), "m")
		if got != want[n-1]+":m" {
			t.Fatalf("with %d layers (top %s) got %q, want %s:m", n, layers[n-1].name, got, want[n-1])
		}
	}
}

func TestClient_ExtendableAfterBuild(t *testing.T) {
	u := uri.MustParse("wrap://ns/late")
	c := newClient(t, config.NewBuilder().Build())

	if res, _ := c.Resolve(context.Background(), u); res.Found() {
		t.Fatal("resolved before extension")
	}
	c.Extendable().Add(resolver.PluginWrapperBinding{URI: u, Wrapper: tagged("late")})
	if got := call(t, c, u.String(), "m"); got != "late:m" {
		t.Fatalf("got %q", got)
	}
	c.Extendable().Remove(u)
	if res, _ := c.Resolve(context.Background(), u); res.Found() {
		t.Fatal("resolved after removal")
	}
}

func TestClient_Implementations(t *testing.T) {
	iface := uri.MustParse("wrap://iface")
	impl1 := uri.MustParse("wrap://impl1")
	impl2 := uri.MustParse("wrap://impl2")
	c := newClient(t, config.NewBuilder().
		AddInterfaceImplementation(iface, impl1).
		AddInterfaceImplementation(iface, impl2).
		Build())

	got := c.Implementations(iface)
	if len(got) != 2 {
		t.Fatalf("got %v", got)
	}
	set := map[uri.URI]bool{got[0]: true, got[1]: true}
	if !set[impl1] || !set[impl2] {
		t.Fatalf("got %v", got)
	}
	if len(c.Implementations(uri.MustParse("wrap://other"))) != 0 {
		t.Fatal("expected empty set")
	}
}

func TestClient_InvokeRaw(t *testing.T) {
	u := uri.MustParse("wrap://ns/env")
	c := newClient(t, config.NewBuilder().AddPluginWrapper(u, wrap.NewPluginWrapper(&envModule{})).Build())

	out, err := c.InvokeRaw(context.Background(), "ns/env", "m", nil, `{"k": "raw" /* jsonc */}`)
	if err != nil {
		t.Fatalf("InvokeRaw: %v", err)
	}
	if string(out) != `"raw"` {
		t.Fatalf("got %s", out)
	}

	if _, err := c.InvokeRaw(context.Background(), "http://x/y", "m", nil, ""); !stderrors.Is(err, errors.ErrInvalidURI) {
		t.Fatalf("err = %v, want invalid uri", err)
	}
	if _, err := c.InvokeRaw(context.Background(), "ns/env", "m", nil, "[1]"); !stderrors.Is(err, errors.ErrInvalidEnv) {
		t.Fatalf("err = %v, want invalid env", err)
	}
}

func TestClient_InvokeWrapper(t *testing.T) {
	u := uri.MustParse("wrap://ns/pre")
	c := newClient(t, config.NewBuilder().
		AddPluginWrapper(u, wrap.NewPluginWrapper(&envModule{})).
		AddEnv(u, wrap.MustEnv(`{"k":1}`)).
		Build())

	w, err := c.LoadWrapper(context.Background(), u)
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		out, err := c.InvokeWrapper(context.Background(), w, u, "m", nil, nil)
		if err != nil || string(out) != "1" {
			t.Fatalf("InvokeWrapper = %q, %v", out, err)
		}
	}
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	u := uri.MustParse("wrap://ns/m")
	c := newClient(t, config.NewBuilder().AddPluginWrapper(u, tagged("m")).Build(), WithMetrics(reg))

	call(t, c, u.String(), "a")
	call(t, c, u.String(), "b")
	_, _ = c.Invoke(context.Background(), uri.MustParse("wrap://ns/none"), "a", nil, nil)

	if got := testutil.ToFloat64(c.metrics.invocations.WithLabelValues(outcomeOK)); got != 2 {
		t.Fatalf("ok invocations = %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.invocations.WithLabelValues(outcomeNotFound)); got != 1 {
		t.Fatalf("not found invocations = %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.resolutions.WithLabelValues(resolveFound)); got != 2 {
		t.Fatalf("found resolutions = %v", got)
	}
	if n := testutil.CollectAndCount(reg, "wrap_client_invoke_duration_seconds"); n != 1 {
		t.Fatalf("duration series = %d", n)
	}

	// A second client on the same registry shares collectors.
	other := newClient(t, nil, WithMetrics(reg))
	if other.metrics.invocations != c.metrics.invocations {
		t.Fatal("collectors not shared")
	}
}

func TestClient_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	u := uri.MustParse("wrap://ns/log")
	c := newClient(t, config.NewBuilder().AddPluginWrapper(u, tagged("x")).Build(), WithLogger(zap.New(core)))

	call(t, c, u.String(), "m")
	if logs.FilterMessage("resolved").Len() != 1 {
		t.Fatal("missing resolved log entry")
	}
	if logs.FilterMessage("invoke").Len() != 1 {
		t.Fatal("missing invoke log entry")
	}
}

func TestClient_WasmSubinvokesPlugin(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer e.Close(ctx)

	caller := uri.MustParse("wrap://wasm/caller")
	alias := uri.MustParse("wrap://ns/alias")
	plugin := uri.MustParse("wrap://plugin/answer")

	c := newClient(t, config.NewBuilder().
		AddWasmPackage(caller, e.Package(wasmtest.Subinvoke())).
		AddRedirect(alias, plugin).
		AddPluginWrapper(plugin, tagged("answer")).
		Build())

	out, err := c.Invoke(ctx, caller, "question", []byte(alias.String()), nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(out) != "answer:question" {
		t.Fatalf("got %q", out)
	}

	_, err = c.Invoke(ctx, caller, "question", []byte("wrap://ns/nowhere"), nil)
	if !stderrors.Is(err, errors.ErrInvocation) {
		t.Fatalf("err = %v, want invocation failure", err)
	}
}

func TestClient_WasmImplementations(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(ctx, nil)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	defer e.Close(ctx)

	mod := uri.MustParse("wrap://wasm/discover")
	iface := uri.MustParse("wrap://iface/logger")
	w, err := e.Wrapper(ctx, wasmtest.Implementations())
	if err != nil {
		t.Fatal(err)
	}
	c := newClient(t, config.NewBuilder().
		AddWasmWrapper(mod, w).
		AddInterfaceImplementation(iface, uri.MustParse("wrap://impl/console")).
		Build())

	out, err := c.Invoke(ctx, mod, "m", []byte(iface.String()), nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	js, err := codec.Decode(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(js) != `["wrap://impl/console"]` {
		t.Fatalf("implementations = %s", js)
	}
}
