// Package errors provides structured error types for the wrap client.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Kind values mirror the resolution and invocation taxonomy:
//
//	invalid_uri          malformed identifier, rejected before resolution
//	not_found            no resolver matched (returned, never a crash)
//	redirect_loop        the redirect hop bound was exceeded
//	package_load_failed  a package could not produce a wrapper
//	invocation_failed    the resolved module's method failed
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInvoke, errors.KindInvocation).
//		URI("wrap://ens/hello.eth").
//		Method("greet").
//		Cause(guestErr).
//		Build()
//
// Or the convenience constructors:
//
//	err := errors.NotFound(u.String())
//	err := errors.RedirectLoop(u.String(), 64, hops)
//
// Every error supports errors.Is against the exported sentinels, which match
// by Kind regardless of Phase:
//
//	if errors.Is(err, wraperrors.ErrNotFound) { ... }
package errors
