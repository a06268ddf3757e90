package engine

import (
	"context"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// Names of the wrap ABI.
const (
	hostModule = "wrap"

	exportInvoke = "_wrap_invoke"
	exportMemory = "memory"

	fnInvokeArgs          = "__wrap_invoke_args"
	fnInvokeResult        = "__wrap_invoke_result"
	fnInvokeError         = "__wrap_invoke_error"
	fnAbort               = "__wrap_abort"
	fnLoadEnv             = "__wrap_load_env"
	fnSubinvoke           = "__wrap_subinvoke"
	fnSubinvokeResultLen  = "__wrap_subinvoke_result_len"
	fnSubinvokeResult     = "__wrap_subinvoke_result"
	fnSubinvokeErrorLen   = "__wrap_subinvoke_error_len"
	fnSubinvokeError      = "__wrap_subinvoke_error"
	fnGetImplementations  = "__wrap_getImplementations"
	fnImplementationsLen  = "__wrap_getImplementations_result_len"
	fnImplementationsData = "__wrap_getImplementations_result"
	fnDebugLog            = "__wrap_debug_log"
)

// callState is the host side of one _wrap_invoke call.
type callState struct {
	invoker   wrap.Invoker
	abort     *errors.Error
	trap      *errors.Error
	uri       uri.URI
	method    []byte
	args      []byte
	env       []byte
	result    []byte
	errMsg    []byte
	subResult []byte
	subError  []byte
	impls     []byte
	failed    bool
}

type stateKey struct{}

func withState(ctx context.Context, st *callState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

func stateFrom(ctx context.Context) *callState {
	st, _ := ctx.Value(stateKey{}).(*callState)
	return st
}
