// Package engine runs wrap bytecode modules on wazero.
//
// # Architecture
//
//	Engine  - owns a wazero runtime and the "wrap" host module
//	Module  - a compiled guest; each Invoke runs in a fresh instance
//
// Engine.Package and Engine.PackageFile produce wrap.WasmPackage values that
// compile on every load, and Module implements wrap.BytecodeModule.
//
// # Call Convention
//
// A guest exports its linear memory as "memory" and a single entry point:
//
//	_wrap_invoke(method_len, args_len, env_len i32) -> i32
//
// The guest pulls the method name and msgpack args with __wrap_invoke_args
// and the msgpack env with __wrap_load_env, then reports either
// __wrap_invoke_result or __wrap_invoke_error. A return value of 1 means
// success.
//
// Host functions exported from module "wrap":
//
//	Function                               Signature (i32)
//	───────────────────────────────────────────────────────────────
//	__wrap_invoke_args                     (method_ptr, args_ptr)
//	__wrap_invoke_result                   (ptr, len)
//	__wrap_invoke_error                    (ptr, len)
//	__wrap_abort                           (msg_ptr, msg_len, file_ptr, file_len, line, col)
//	__wrap_load_env                        (ptr)
//	__wrap_subinvoke                       (uri_ptr, uri_len, method_ptr, method_len, args_ptr, args_len) -> ok
//	__wrap_subinvoke_result_len            () -> len
//	__wrap_subinvoke_result                (ptr)
//	__wrap_subinvoke_error_len             () -> len
//	__wrap_subinvoke_error                 (ptr)
//	__wrap_getImplementations              (uri_ptr, uri_len) -> found
//	__wrap_getImplementations_result_len   () -> len
//	__wrap_getImplementations_result       (ptr)
//	__wrap_debug_log                       (ptr, len)
//
// Implementations are returned as a msgpack array of URI strings.
//
// # Errors
//
// Aborts, traps and out-of-range memory access surface as *errors.Error in
// the engine phase. Guest-reported failures carry the guest's message as
// their detail.
package engine
