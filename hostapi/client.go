package hostapi

import (
	"context"

	"github.com/wippyai/wrap-client/client"
	"github.com/wippyai/wrap-client/codec"
	"github.com/wippyai/wrap-client/config"
	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/wrap"
)

// CreateClient freezes the builder behind b into a client. On success the
// builder handle is consumed and becomes invalid. On failure it stays live
// and unchanged.
func (a *API) CreateClient(b Handle) Handle {
	builder, ok := a.builder("create_client", b)
	if !ok {
		return 0
	}
	c, err := client.New(builder.Snapshot(), a.clientOpts...)
	if err != nil {
		a.fail("create_client", err)
		return 0
	}
	a.table.drop(b)
	return a.put("create_client", KindClient, c)
}

func (a *API) client(op string, h Handle) (*client.Client, bool) {
	v, _, err := a.table.get(h, KindClient)
	if err != nil {
		a.fail(op, err)
		return nil, false
	}
	return v.(*client.Client), true
}

// InvokeRaw invokes method on rawURI with msgpack args. envText is an
// optional JSON environment override. A successful call never returns nil,
// even when the result is empty.
func (a *API) InvokeRaw(ctx context.Context, c Handle, rawURI, method string, args []byte, envText string) []byte {
	cl, ok := a.client("invoke_raw", c)
	if !ok {
		return nil
	}
	out, err := cl.InvokeRaw(ctx, rawURI, method, args, envText)
	if err != nil {
		a.fail("invoke_raw", err)
		return nil
	}
	if out == nil {
		out = []byte{}
	}
	return out
}

// Resolve returns a handle to the wrapper rawURI resolves to. An unmatched
// URI fails with a not-found error.
func (a *API) Resolve(ctx context.Context, c Handle, rawURI string) Handle {
	cl, ok := a.client("resolve", c)
	if !ok {
		return 0
	}
	u, ok := a.parseURI("resolve", rawURI)
	if !ok {
		return 0
	}
	w, err := cl.LoadWrapper(ctx, u)
	if err != nil {
		a.fail("resolve", err)
		return 0
	}
	switch w.(type) {
	case *wrap.WasmWrapper:
		return a.put("resolve", KindWasmWrapper, w)
	case *wrap.PluginWrapper:
		return a.put("resolve", KindPluginWrapper, w)
	default:
		a.fail("resolve", errors.InvalidInput(errors.PhaseBoundary, "unsupported wrapper variant"))
		return 0
	}
}

// Implementations returns the implementations of iface as a msgpack array of
// URI strings. An interface with none yields an empty array, not nil.
func (a *API) Implementations(c Handle, iface string) []byte {
	cl, ok := a.client("implementations", c)
	if !ok {
		return nil
	}
	u, ok := a.parseURI("implementations", iface)
	if !ok {
		return nil
	}
	impls := cl.Implementations(u)
	out := make([]string, len(impls))
	for i, impl := range impls {
		out[i] = impl.String()
	}
	return a.encodeValue("implementations", out)
}

// ConfigFromFile loads a YAML client config into a new builder handle.
func (a *API) ConfigFromFile(path string) Handle {
	var src config.PackageSource
	if a.engine != nil {
		src = a.engine
	}
	b, err := config.LoadFile(path, src)
	if err != nil {
		a.fail("config_from_file", err)
		return 0
	}
	return a.put("config_from_file", KindBuilder, b)
}

func (a *API) encodeValue(op string, v any) []byte {
	out, err := codec.Marshal(v)
	if err != nil {
		a.fail(op, err)
		return nil
	}
	return out
}
