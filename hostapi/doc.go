// Package hostapi is the flat boundary an embedding host drives.
//
// Every value a host can hold (builders, clients, wrappers, packages,
// resolvers) lives in a per-API handle table and crosses the boundary as
// a Handle. Failures never panic or return Go errors; they return a
// sentinel instead:
//
//	Handle   0
//	[]byte   nil
//	bool     false
//
// and record the underlying error, which LastError returns until the next
// failure or ClearError. Successful calls leave it untouched. There is one
// slot per API, so concurrent hosts pair each call with its LastError read
// under their own lock or use one API per thread.
//
// A typical session:
//
//	api := hostapi.New(hostapi.WithEngine(eng))
//	b := api.NewBuilderConfig()
//	api.AddWasmPackage(b, "wrap://ns/calc", api.CreateWasmPackage(bytecode))
//	c := api.CreateClient(b) // b is consumed
//	out := api.InvokeRaw(ctx, c, "wrap://ns/calc", "add", api.Encode(`{"a":1,"b":2}`), "")
//	if out == nil {
//		log.Println(api.LastError())
//	}
//
// Handles stay valid until Release or Close. Releasing a wrapper or
// package handle does not affect clients already built from it.
package hostapi
