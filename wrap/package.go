package wrap

import (
	"context"
)

// Package is a loadable module that produces a Wrapper. The variants are
// *WasmPackage and *PluginPackage; the set is closed.
type Package interface {
	CreateWrapper(ctx context.Context) (Wrapper, error)
	pkg()
}

// BytecodeLoader loads a bytecode module, typically by compiling wasm bytes.
type BytecodeLoader interface {
	Load(ctx context.Context) (BytecodeModule, error)
}

// LoaderFunc adapts a function to BytecodeLoader.
type LoaderFunc func(ctx context.Context) (BytecodeModule, error)

func (f LoaderFunc) Load(ctx context.Context) (BytecodeModule, error) {
	return f(ctx)
}

// WasmPackage is a bytecode package. Every CreateWrapper call loads again.
type WasmPackage struct {
	loader BytecodeLoader
}

func NewWasmPackage(l BytecodeLoader) *WasmPackage {
	return &WasmPackage{loader: l}
}

func (p *WasmPackage) CreateWrapper(ctx context.Context) (Wrapper, error) {
	m, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return NewWasmWrapper(m), nil
}

func (*WasmPackage) pkg() {}

// PluginFactory creates a fresh plugin module instance.
type PluginFactory func(ctx context.Context) (PluginModule, error)

// PluginPackage produces a new PluginWrapper, with its own environment
// slot, on every CreateWrapper call.
type PluginPackage struct {
	factory PluginFactory
}

func NewPluginPackage(f PluginFactory) *PluginPackage {
	return &PluginPackage{factory: f}
}

func (p *PluginPackage) CreateWrapper(ctx context.Context) (Wrapper, error) {
	m, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	return NewPluginWrapper(m), nil
}

func (*PluginPackage) pkg() {}

// PackageKind names the variant of p for logs and diagnostics.
func PackageKind(p Package) string {
	switch p.(type) {
	case *WasmPackage:
		return "wasm"
	case *PluginPackage:
		return "plugin"
	default:
		return "unknown"
	}
}
