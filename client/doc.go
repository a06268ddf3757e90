// Package client resolves wrap URIs and dispatches invocations.
//
// A Client holds a frozen config.Config. Invoke resolves a URI through the
// config's resolver chain, loads a package into a wrapper when needed, picks
// the effective environment and calls the wrapper:
//
//	cfg := config.NewBuilder().
//		AddRedirect(uri.MustParse("wrap://ns/alpha"), uri.MustParse("wrap://ns/beta")).
//		AddPluginWrapper(uri.MustParse("wrap://ns/beta"), wrap.NewPluginWrapper(module)).
//		Build()
//	c, _ := client.New(cfg, client.WithLogger(log))
//	out, err := c.Invoke(ctx, uri.MustParse("wrap://ns/alpha"), "getValue", args, nil)
//
// The effective environment is the override passed to Invoke, else the env
// bound to the requested URI, else the env bound to the final URI after
// redirects.
//
// Client implements wrap.Invoker, so modules sub-invoke through the same
// chain.
package client
