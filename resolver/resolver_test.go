package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

func echoPlugin(tag string) *wrap.PluginWrapper {
	return wrap.NewPluginWrapper(wrap.PluginFunc(func(_ context.Context, method string, _ []byte, _ wrap.Invoker) ([]byte, error) {
		return []byte(tag + ":" + method), nil
	}))
}

func invokeTag(t *testing.T, w wrap.Wrapper) string {
	t.Helper()
	out, err := w.Invoke(context.Background(), wrap.Invocation{Method: "m"}, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	return string(out)
}

func TestLike_Variants(t *testing.T) {
	ctx := context.Background()
	a := uri.MustParse("wrap://a/x")
	b := uri.MustParse("wrap://b/x")
	pw := echoPlugin("p")
	pp := wrap.NewPluginPackage(func(context.Context) (wrap.PluginModule, error) {
		return wrap.PluginFunc(func(context.Context, string, []byte, wrap.Invoker) ([]byte, error) { return nil, nil }), nil
	})

	tests := []struct {
		name string
		like Like
		want string
	}{
		{name: "redirect", like: RedirectRule{From: a, To: b}, want: "uri"},
		{name: "plugin wrapper", like: PluginWrapperBinding{URI: a, Wrapper: pw}, want: "wrapper"},
		{name: "plugin package", like: PluginPackageBinding{URI: a, Package: pp}, want: "package"},
		{name: "use", like: Use{Resolver: NewStatic(StaticRedirect(a, b))}, want: "uri"},
		{name: "nil use", like: Use{}, want: "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.like.TryResolve(ctx, a)
			if err != nil {
				t.Fatalf("TryResolve: %v", err)
			}
			if got := ResultKind(r); got != tt.want {
				t.Fatalf("ResultKind = %s, want %s", got, tt.want)
			}
			r, _ = tt.like.TryResolve(ctx, uri.MustParse("wrap://other/x"))
			if r != nil {
				t.Fatalf("matched unrelated URI: %v", r)
			}
		})
	}
}

func TestStatic_FirstEntryWins(t *testing.T) {
	u := uri.MustParse("wrap://a/x")
	s := NewStatic(
		StaticWrapper(u, echoPlugin("first")),
		StaticWrapper(u, echoPlugin("second")),
	)
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
	r, err := s.TryResolve(context.Background(), u)
	if err != nil {
		t.Fatalf("TryResolve: %v", err)
	}
	wr, ok := r.(WrapperResult)
	if !ok {
		t.Fatalf("got %T, want WrapperResult", r)
	}
	if got := invokeTag(t, wr.Wrapper); got != "first:m" {
		t.Fatalf("got %q, want first:m", got)
	}
}

func TestExtendable_AddRemove(t *testing.T) {
	ctx := context.Background()
	a := uri.MustParse("wrap://a/x")
	e := NewExtendable()

	e.Add(PluginWrapperBinding{URI: a, Wrapper: echoPlugin("p")}, Use{Resolver: NewStatic()})
	if e.Len() != 2 {
		t.Fatalf("Len = %d, want 2", e.Len())
	}
	r, _ := e.TryResolve(ctx, a)
	if r == nil {
		t.Fatal("expected match after Add")
	}

	if n := e.Remove(a); n != 1 {
		t.Fatalf("Remove = %d, want 1", n)
	}
	if n := e.Remove(a); n != 0 {
		t.Fatalf("second Remove = %d, want 0", n)
	}
	if e.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (Use entries are not keyed)", e.Len())
	}
	r, _ = e.TryResolve(ctx, a)
	if r != nil {
		t.Fatalf("expected no match after Remove, got %v", r)
	}
}

func TestExtendable_NestedAddDoesNotDeadlock(t *testing.T) {
	a := uri.MustParse("wrap://a/x")
	e := NewExtendable()
	e.Add(Use{Resolver: Func(func(_ context.Context, u uri.URI) (Result, error) {
		e.Add(PluginWrapperBinding{URI: u, Wrapper: echoPlugin("late")})
		return nil, nil
	})})

	r, err := e.TryResolve(context.Background(), a)
	if err != nil || r != nil {
		t.Fatalf("first pass = %v, %v", r, err)
	}
	r, _ = e.TryResolve(context.Background(), a)
	if r == nil {
		t.Fatal("expected the entry added during resolution to match")
	}
}

func TestChain_TierOrder(t *testing.T) {
	u := uri.MustParse("wrap://a/x")
	chain := NewChain(
		Entry{Tier: TierExtendable, Like: Use{Resolver: NewExtendable(PluginWrapperBinding{URI: u, Wrapper: echoPlugin("extendable")})}},
		Entry{Tier: TierStatic, Like: Use{Resolver: NewStatic(StaticWrapper(u, echoPlugin("static")))}},
		Entry{Tier: TierResolver, Like: PluginWrapperBinding{URI: u, Wrapper: echoPlugin("resolver")}},
		Entry{Tier: TierBinding, Like: PluginWrapperBinding{URI: u, Wrapper: echoPlugin("binding")}},
	)

	res, err := chain.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := invokeTag(t, res.Wrapper); got != "binding:m" {
		t.Fatalf("got %q, want binding:m", got)
	}

	tiers := []Tier{}
	for _, e := range chain.Entries() {
		tiers = append(tiers, e.Tier)
	}
	want := []Tier{TierBinding, TierResolver, TierStatic, TierExtendable}
	if fmt.Sprint(tiers) != fmt.Sprint(want) {
		t.Fatalf("tiers = %v, want %v", tiers, want)
	}
}

func TestChain_RedirectsBeforeBindings(t *testing.T) {
	a := uri.MustParse("wrap://a/x")
	b := uri.MustParse("wrap://b/x")
	chain := NewChain(
		Entry{Tier: TierBinding, Like: PluginWrapperBinding{URI: a, Wrapper: echoPlugin("a")}},
		Entry{Tier: TierBinding, Like: PluginWrapperBinding{URI: b, Wrapper: echoPlugin("b")}},
		Entry{Tier: TierRedirect, Like: RedirectRule{From: a, To: b}},
	)
	res, err := chain.Resolve(context.Background(), a)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.URI != b {
		t.Fatalf("URI = %s, want %s", res.URI, b)
	}
	if got := invokeTag(t, res.Wrapper); got != "b:m" {
		t.Fatalf("got %q, want b:m", got)
	}
	path := uri.Strings(res.Path())
	if fmt.Sprint(path) != "[wrap://a/x wrap://b/x]" {
		t.Fatalf("Path = %v", path)
	}
	if len(res.History) != 2 || res.History[0].Outcome != "uri" || res.History[1].Outcome != "wrapper" {
		t.Fatalf("History = %+v", res.History)
	}
}

func TestChain_NotFound(t *testing.T) {
	chain := NewChain()
	res, err := chain.Resolve(context.Background(), uri.MustParse("wrap://a/x"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Found() {
		t.Fatal("expected not found")
	}
	if len(res.History) != 0 {
		t.Fatalf("History = %+v, want empty", res.History)
	}
}

func redirectLine(n int) ([]Entry, uri.URI) {
	var entries []Entry
	for i := 0; i < n; i++ {
		from := uri.MustParse(fmt.Sprintf("wrap://hop/%d", i))
		to := uri.MustParse(fmt.Sprintf("wrap://hop/%d", i+1))
		entries = append(entries, Entry{Tier: TierRedirect, Like: RedirectRule{From: from, To: to}})
	}
	end := uri.MustParse(fmt.Sprintf("wrap://hop/%d", n))
	entries = append(entries, Entry{Tier: TierBinding, Like: PluginWrapperBinding{URI: end, Wrapper: echoPlugin("end")}})
	return entries, uri.MustParse("wrap://hop/0")
}

func TestChain_RedirectBound(t *testing.T) {
	entries, start := redirectLine(MaxRedirects - 1)
	res, err := NewChain(entries...).Resolve(context.Background(), start)
	if err != nil {
		t.Fatalf("%d redirects: %v", MaxRedirects-1, err)
	}
	if !res.Found() {
		t.Fatal("expected wrapper at end of line")
	}

	entries, start = redirectLine(MaxRedirects)
	_, err = NewChain(entries...).Resolve(context.Background(), start)
	if !stderrors.Is(err, errors.ErrRedirectLoop) {
		t.Fatalf("%d redirects: err = %v, want redirect loop", MaxRedirects, err)
	}
}

func TestChain_Cycle(t *testing.T) {
	a := uri.MustParse("wrap://a/x")
	b := uri.MustParse("wrap://b/x")
	chain := NewChain(
		Entry{Tier: TierRedirect, Like: RedirectRule{From: a, To: b}},
		Entry{Tier: TierRedirect, Like: RedirectRule{From: b, To: a}},
	)
	_, err := chain.Resolve(context.Background(), a)
	var we *errors.Error
	if !stderrors.As(err, &we) || we.Kind != errors.KindRedirectLoop {
		t.Fatalf("err = %v, want redirect loop", err)
	}
	if len(we.Hops) != MaxRedirects+1 {
		t.Fatalf("hops = %d, want %d", len(we.Hops), MaxRedirects+1)
	}
}

func TestChain_SelfRedirectCountsAsHop(t *testing.T) {
	a := uri.MustParse("wrap://a/x")
	chain := NewChain(Entry{Tier: TierResolver, Like: Use{Resolver: Func(func(_ context.Context, u uri.URI) (Result, error) {
		return URIResult{URI: u}, nil
	})}})
	_, err := chain.Resolve(context.Background(), a)
	if !stderrors.Is(err, errors.ErrRedirectLoop) {
		t.Fatalf("err = %v, want redirect loop", err)
	}
}

func TestChain_PackageLoadedPerResolution(t *testing.T) {
	u := uri.MustParse("wrap://pkg/x")
	var loads atomic.Int32
	pkg := wrap.NewPluginPackage(func(context.Context) (wrap.PluginModule, error) {
		loads.Add(1)
		return wrap.PluginFunc(func(context.Context, string, []byte, wrap.Invoker) ([]byte, error) { return []byte("ok"), nil }), nil
	})
	chain := NewChain(Entry{Tier: TierStatic, Like: Use{Resolver: NewStatic(StaticPackage(u, pkg))}})

	for i := 1; i <= 3; i++ {
		res, err := chain.Resolve(context.Background(), u)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Package == nil {
			t.Fatal("expected resolution to record the package")
		}
		if got := loads.Load(); got != int32(i) {
			t.Fatalf("loads = %d, want %d", got, i)
		}
	}
}

func TestChain_PackageLoadFailure(t *testing.T) {
	u := uri.MustParse("wrap://pkg/x")
	boom := stderrors.New("boom")
	pkg := wrap.NewWasmPackage(wrap.LoaderFunc(func(context.Context) (wrap.BytecodeModule, error) {
		return nil, boom
	}))
	chain := NewChain(Entry{Tier: TierBinding, Like: PackageBinding{URI: u, Package: pkg}})

	_, err := chain.Resolve(context.Background(), u)
	if !stderrors.Is(err, errors.ErrPackageLoad) {
		t.Fatalf("err = %v, want package load", err)
	}
	if !stderrors.Is(err, boom) {
		t.Fatalf("err = %v, want cause preserved", err)
	}
}

func TestChain_ResolverErrorWrapped(t *testing.T) {
	boom := stderrors.New("boom")
	chain := NewChain(Entry{Tier: TierResolver, Like: Use{Resolver: Func(func(context.Context, uri.URI) (Result, error) {
		return nil, boom
	})}})
	_, err := chain.Resolve(context.Background(), uri.MustParse("wrap://a/x"))
	var we *errors.Error
	if !stderrors.As(err, &we) || we.Kind != errors.KindResolver {
		t.Fatalf("err = %v, want resolver failure", err)
	}
	if !stderrors.Is(err, boom) {
		t.Fatal("cause lost")
	}
}

func TestChain_Nested(t *testing.T) {
	a := uri.MustParse("wrap://a/x")
	b := uri.MustParse("wrap://b/x")
	inner := NewChain(Entry{Tier: TierRedirect, Like: RedirectRule{From: a, To: b}})
	outer := NewChain(
		Entry{Tier: TierResolver, Like: Use{Resolver: inner}},
		Entry{Tier: TierBinding, Like: PluginWrapperBinding{URI: b, Wrapper: echoPlugin("b")}},
	)
	res, err := outer.Resolve(context.Background(), a)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := invokeTag(t, res.Wrapper); got != "b:m" {
		t.Fatalf("got %q", got)
	}
	if res.History[0].Tier != TierResolver {
		t.Fatalf("first hop tier = %s, want resolver", res.History[0].Tier)
	}
}
