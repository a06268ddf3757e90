package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/wrap"
)

// Engine runs wrap bytecode modules on a wazero runtime.
type Engine struct {
	runtime      wazero.Runtime
	cfg          Config
	hostMu       sync.Mutex
	hostDone     atomic.Bool
	wasiInitMu   sync.Mutex
	wasiInitDone atomic.Bool
}

// Config holds configuration for engine creation
type Config struct {
	// Stdout and Stderr receive guest output when WASI is enabled.
	// Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// EnableWASI links wasi_snapshot_preview1 for modules built against it.
	EnableWASI bool
}

// New creates an engine. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if err := e.initHost(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	if e.cfg.EnableWASI {
		if err := e.InitWASI(ctx); err != nil {
			_ = e.runtime.Close(ctx)
			return nil, err
		}
	}
	return e, nil
}

// Close releases the runtime and every module compiled by it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// initHost instantiates the "wrap" host module once per runtime.
func (e *Engine) initHost(ctx context.Context) error {
	if e.hostDone.Load() {
		return nil
	}

	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	if e.hostDone.Load() {
		return nil
	}
	if _, err := instantiateHost(ctx, e.runtime); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindNotInitialized, err, "instantiate wrap host module")
	}
	e.hostDone.Store(true)
	return nil
}

// InitWASI instantiates the WASI singleton for this engine's runtime.
// Safe for concurrent calls.
func (e *Engine) InitWASI(ctx context.Context) error {
	if e.wasiInitDone.Load() {
		return nil
	}

	e.wasiInitMu.Lock()
	defer e.wasiInitMu.Unlock()

	if e.wasiInitDone.Load() {
		return nil
	}

	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) != nil {
		e.wasiInitDone.Store(true)
		return nil
	}

	builder := e.runtime.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
	if _, err := builder.Instantiate(ctx); err != nil {
		if e.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
			return errors.Wrap(errors.PhaseEngine, errors.KindNotInitialized, err, "instantiate WASI")
		}
	}

	e.wasiInitDone.Store(true)
	return nil
}

// Compile validates and compiles wasm bytes into a Module.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEngine, errors.KindInvalidData, err, "compile failed")
	}

	if _, ok := compiled.ExportedFunctions()[exportInvoke]; !ok {
		_ = compiled.Close(ctx)
		return nil, errors.MissingExport(exportInvoke)
	}
	if _, ok := compiled.ExportedMemories()[exportMemory]; !ok {
		_ = compiled.Close(ctx)
		return nil, errors.MissingExport(exportMemory)
	}

	debugf("compiled module: %d bytes", len(wasmBytes))
	return &Module{engine: e, compiled: compiled}, nil
}

// Package returns a bytecode package that compiles wasmBytes each time it is
// loaded.
func (e *Engine) Package(wasmBytes []byte) *wrap.WasmPackage {
	return wrap.NewWasmPackage(wrap.LoaderFunc(func(ctx context.Context) (wrap.BytecodeModule, error) {
		return e.Compile(ctx, wasmBytes)
	}))
}

// PackageFile reads a wasm file and returns its package.
func (e *Engine) PackageFile(path string) (*wrap.WasmPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", path, err)
	}
	Logger().Debug("loaded module file", zap.String("path", path), zap.Int("bytes", len(data)))
	return e.Package(data), nil
}

// Wrapper compiles wasmBytes once and returns a wrapper around the result.
func (e *Engine) Wrapper(ctx context.Context, wasmBytes []byte) (*wrap.WasmWrapper, error) {
	m, err := e.Compile(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	return wrap.NewWasmWrapper(m), nil
}

func (e *Engine) moduleConfig() wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().WithName("")
	if e.cfg.EnableWASI {
		cfg = cfg.WithSysWalltime().WithSysNanotime()
		if e.cfg.Stdout != nil {
			cfg = cfg.WithStdout(e.cfg.Stdout)
		}
		if e.cfg.Stderr != nil {
			cfg = cfg.WithStderr(e.cfg.Stderr)
		}
	}
	return cfg
}
