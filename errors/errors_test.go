package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseInvoke,
				Kind:   KindInvocation,
				URI:    "wrap://ens/hello.eth",
				Method: "greet",
				Detail: "guest failed",
			},
			contains: []string{"[invoke]", "invocation_failed", "wrap://ens/hello.eth#greet", "guest failed"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindNotFound,
			},
			contains: []string{"[resolve]", "not_found"},
		},
		{
			name: "error with hops",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindRedirectLoop,
				Hops:  []string{"wrap://a/a", "wrap://b/b", "wrap://a/a"},
			},
			contains: []string{"redirect_loop", "wrap://a/a -> wrap://b/b -> wrap://a/a"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindPackageLoad,
				Detail: "compile",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "package_load_failed", "compile", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Invocation("wrap://a/b", "m", cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := NotFound("wrap://a/b")

	if !err.Is(&Error{Phase: PhaseResolve, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseInvoke, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseResolve, Kind: KindRedirectLoop}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match phaseless sentinel")
	}
	if errors.Is(err, ErrRedirectLoop) {
		t.Error("errors.Is should not match other sentinel")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseInvoke, KindInvocation).
		URI("wrap://ns/a").
		Method("run").
		Hops("wrap://ns/x", "wrap://ns/a").
		Cause(cause).
		Detail("expected %s, got %s", "bytes", "nothing").
		Build()

	if err.Phase != PhaseInvoke || err.Kind != KindInvocation {
		t.Errorf("Phase/Kind = %v/%v", err.Phase, err.Kind)
	}
	if err.URI != "wrap://ns/a" || err.Method != "run" {
		t.Errorf("URI/Method = %v/%v", err.URI, err.Method)
	}
	if len(err.Hops) != 2 {
		t.Errorf("Hops = %v", err.Hops)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected bytes, got nothing" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		err    *Error
		target *Error
		name   string
	}{
		{name: "InvalidURI", err: InvalidURI("::", "missing authority"), target: ErrInvalidURI},
		{name: "InvalidEnv", err: InvalidEnv("not an object", nil), target: ErrInvalidEnv},
		{name: "NotFound", err: NotFound("wrap://a/b"), target: ErrNotFound},
		{name: "RedirectLoop", err: RedirectLoop("wrap://a/b", 64, nil), target: ErrRedirectLoop},
		{name: "PackageLoad", err: PackageLoad("wrap://a/b", errors.New("x")), target: ErrPackageLoad},
		{name: "Invocation", err: Invocation("wrap://a/b", "m", errors.New("x")), target: ErrInvocation},
		{name: "InvalidHandle", err: InvalidHandle(7, "client"), target: ErrInvalidHandle},
		{name: "NotInitialized", err: NotInitialized(PhaseBoundary, "client"), target: ErrNotInitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("%v does not match %v", tt.err, tt.target.Kind)
			}
		})
	}
}

func TestAbort_Detail(t *testing.T) {
	err := Abort("boom", "src/lib.rs", 12, 4)
	if !strings.Contains(err.Error(), "boom at src/lib.rs:12:4") {
		t.Errorf("Error() = %q", err.Error())
	}

	err = Abort("boom", "", 0, 0)
	if strings.Contains(err.Error(), " at ") {
		t.Errorf("Error() = %q, want no location", err.Error())
	}
}
