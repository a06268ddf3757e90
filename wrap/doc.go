// Package wrap defines the module model of the client: wrappers that can be
// invoked, packages that load into wrappers, and the environment blobs bound
// to them.
//
// # Variants
//
//	Wrapper  *WasmWrapper    bytecode module executed by an engine
//	         *PluginWrapper  Go module behind a single Invoke method
//	Package  *WasmPackage    loads a BytecodeModule on CreateWrapper
//	         *PluginPackage  builds a fresh PluginModule on CreateWrapper
//
// Both sets are closed; switch on the concrete types to handle every case.
//
// # Environment
//
// An Env is an immutable JSON object. A PluginWrapper stores the effective
// environment in its slot before each call, so plugin code reads it from its
// own state:
//
//	type Greeter struct {
//		wrap.EnvSlot
//	}
//
//	func (g *Greeter) Invoke(ctx context.Context, method string, args []byte, inv wrap.Invoker) ([]byte, error) {
//		prefix, _ := g.EnvValue("prefix")
//		...
//	}
//
// Calls on one PluginWrapper are serialized since the slot is shared by all
// callers of that handle.
package wrap
