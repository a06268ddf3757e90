package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse    Phase = "parse"    // URI and env parsing
	PhaseConfig   Phase = "config"   // builder and config files
	PhaseResolve  Phase = "resolve"  // resolver chain walk
	PhaseLoad     Phase = "load"     // package to wrapper
	PhaseInvoke   Phase = "invoke"   // module call
	PhaseEncode   Phase = "encode"   // msgpack/JSON conversion
	PhaseEngine   Phase = "engine"   // bytecode engine
	PhaseBoundary Phase = "boundary" // flat host surface
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidURI     Kind = "invalid_uri"
	KindInvalidEnv     Kind = "invalid_env"
	KindNotFound       Kind = "not_found"
	KindRedirectLoop   Kind = "redirect_loop"
	KindPackageLoad    Kind = "package_load_failed"
	KindInvocation     Kind = "invocation_failed"
	KindAbort          Kind = "abort"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidData    Kind = "invalid_data"
	KindInvalidHandle  Kind = "invalid_handle"
	KindMissingExport  Kind = "missing_export"
	KindNotInitialized Kind = "not_initialized"
	KindResolver       Kind = "resolver_failed"
)

// Error is the structured error type used throughout the client
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	URI    string
	Method string
	Detail string
	Hops   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.URI != "" {
		b.WriteString(" ")
		b.WriteString(e.URI)
		if e.Method != "" {
			b.WriteByte('#')
			b.WriteString(e.Method)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if len(e.Hops) > 0 {
		b.WriteString(" (path: ")
		b.WriteString(strings.Join(e.Hops, " -> "))
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches any phase of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks against the taxonomy.
var (
	ErrInvalidURI     = &Error{Kind: KindInvalidURI}
	ErrInvalidEnv     = &Error{Kind: KindInvalidEnv}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrRedirectLoop   = &Error{Kind: KindRedirectLoop}
	ErrPackageLoad    = &Error{Kind: KindPackageLoad}
	ErrInvocation     = &Error{Kind: KindInvocation}
	ErrInvalidHandle  = &Error{Kind: KindInvalidHandle}
	ErrNotInitialized = &Error{Kind: KindNotInitialized}
	ErrAbort          = &Error{Kind: KindAbort}
	ErrInvalidInput   = &Error{Kind: KindInvalidInput}
	ErrInvalidData    = &Error{Kind: KindInvalidData}
	ErrMissingExport  = &Error{Kind: KindMissingExport}
	ErrResolver       = &Error{Kind: KindResolver}
)

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// URI sets the URI the error refers to
func (b *Builder) URI(uri string) *Builder {
	b.err.URI = uri
	return b
}

// Method sets the invoked method name
func (b *Builder) Method(method string) *Builder {
	b.err.Method = method
	return b
}

// Hops records the resolution path
func (b *Builder) Hops(hops ...string) *Builder {
	b.err.Hops = hops
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the resolution/invocation taxonomy

// InvalidURI creates a malformed identifier error
func InvalidURI(raw, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidURI,
		Detail: fmt.Sprintf("%q: %s", raw, detail),
	}
}

// InvalidEnv creates a malformed environment blob error
func InvalidEnv(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidEnv,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a no-match resolution error
func NotFound(uri string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNotFound,
		URI:    uri,
		Detail: "no resolver matched",
	}
}

// RedirectLoop creates a hop-bound exceeded error
func RedirectLoop(uri string, limit int, hops []string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindRedirectLoop,
		URI:    uri,
		Detail: fmt.Sprintf("exceeded %d redirects", limit),
		Hops:   hops,
	}
}

// ResolverFailed wraps an error returned by a resolver during a hop
func ResolverFailed(uri string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindResolver,
		URI:    uri,
		Detail: "resolver failed",
		Cause:  cause,
	}
}

// PackageLoad creates a package instantiation error
func PackageLoad(uri string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindPackageLoad,
		URI:    uri,
		Detail: "create wrapper from package",
		Cause:  cause,
	}
}

// Invocation creates a module method failure error
func Invocation(uri, method string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindInvocation,
		URI:    uri,
		Method: method,
		Cause:  cause,
	}
}

// Abort creates an error for a guest that called __wrap_abort
func Abort(msg, file string, line, column uint32) *Error {
	detail := msg
	if file != "" {
		detail = fmt.Sprintf("%s at %s:%d:%d", msg, file, line, column)
	}
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindAbort,
		Detail: detail,
	}
}

// MissingExport creates an error for a bytecode module lacking an ABI export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("module does not export %q", name),
	}
}

// InvalidHandle creates an error for an unknown or mistyped boundary handle
func InvalidHandle(handle uint32, want string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %d is not a live %s", handle, want),
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
