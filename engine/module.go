package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/wrap"
)

// Module is a compiled wrap module. Each Invoke runs in a fresh instance, so
// a Module is safe for concurrent use.
type Module struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Close releases the compiled code.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Exports lists the module's exported function names.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Invoke instantiates the module and calls _wrap_invoke for inv.
func (m *Module) Invoke(ctx context.Context, inv wrap.Invocation, invoker wrap.Invoker) ([]byte, error) {
	env, err := inv.Env.Msgpack()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidEnv, err, "encode env")
	}

	st := &callState{
		invoker: invoker,
		uri:     inv.URI,
		method:  []byte(inv.Method),
		args:    inv.Args,
		env:     env,
	}
	ctx = withState(ctx, st)

	inst, err := m.engine.runtime.InstantiateModule(ctx, m.compiled, m.engine.moduleConfig())
	if err != nil {
		if st.abort != nil {
			return nil, st.abort
		}
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindNotInitialized, err, "instantiate module")
	}
	defer func() {
		if cerr := inst.Close(ctx); cerr != nil {
			Logger().Debug("close instance", zap.Error(cerr))
		}
	}()

	fn := inst.ExportedFunction(exportInvoke)
	if fn == nil {
		return nil, errors.MissingExport(exportInvoke)
	}

	debugf("invoke %s#%s args=%d env=%d", inv.URI, inv.Method, len(st.args), len(st.env))

	results, err := fn.Call(ctx, uint64(len(st.method)), uint64(len(st.args)), uint64(len(st.env)))
	switch {
	case st.abort != nil:
		return nil, st.abort
	case st.trap != nil:
		return nil, st.trap
	case err != nil:
		return nil, errors.New(errors.PhaseEngine, errors.KindInvocation).
			Method(inv.Method).
			Detail("guest trapped").
			Cause(err).
			Build()
	}

	if st.failed || len(results) == 0 || results[0] != 1 {
		msg := string(st.errMsg)
		if msg == "" {
			msg = "guest reported failure"
		}
		return nil, errors.New(errors.PhaseEngine, errors.KindInvocation).
			Method(inv.Method).
			Detail("%s", msg).
			Build()
	}
	return st.result, nil
}
