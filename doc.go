// Package wrapclient is a client for wrap modules: units of functionality
// addressed by wrap:// URIs and called with msgpack-encoded arguments.
//
// A URI is resolved through an ordered chain of redirects, bindings and
// resolvers until it reaches a wrapper, which is either a bytecode module run
// on wazero or a plugin implemented in Go. Packages produce a fresh wrapper
// on every resolution.
//
// # Architecture Overview
//
//	wrapclient/
//	├── uri/            URI parsing and canonical form
//	├── codec/          JSON to msgpack conversion for args and envs
//	├── errors/         Structured error types (phase, kind, URI, hops)
//	├── wrap/           Wrapper, package, plugin and environment types
//	├── resolver/       Resolver-like variants, static/extendable resolvers, chain walk
//	├── config/         Builder, frozen Config and YAML config files
//	├── engine/         wazero host module and bytecode wrapper ABI
//	├── client/         Resolution, env selection and invocation dispatch
//	├── hostapi/        Handle-based flat surface for embedding hosts
//	└── cmd/wrap/       Command line client with an interactive mode
//
// # Quick Start
//
//	eng, err := engine.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	cfg := config.NewBuilder().
//	    AddWasmPackage(uri.MustParse("wrap://ns/calc"), eng.Package(bytecode)).
//	    AddRedirect(uri.MustParse("wrap://ns/latest"), uri.MustParse("wrap://ns/calc")).
//	    Build()
//
//	c, err := client.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	args, _ := codec.EncodeString(`{"a": 1, "b": 2}`)
//	out, err := c.Invoke(ctx, uri.MustParse("wrap://ns/latest"), "add", args, nil)
//
// # Plugins
//
// A plugin is any wrap.PluginModule. Embedding wrap.EnvSlot gives it access
// to the environment of the current call:
//
//	type counter struct {
//	    wrap.EnvSlot
//	}
//
//	func (c *counter) Invoke(ctx context.Context, method string, args []byte, inv wrap.Invoker) ([]byte, error) {
//	    step, _ := c.EnvValue("step")
//	    ...
//	}
//
// # Error Handling
//
// Errors are *errors.Error values and match the package sentinels:
//
//	if errors.Is(err, wraperrors.ErrNotFound) {
//	    ...
//	}
package wrapclient
