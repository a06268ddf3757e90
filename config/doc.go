// Package config assembles client configuration.
//
// A Builder accumulates environments, interface implementations, URI
// bindings, redirects and resolvers. Build freezes it into a Config whose
// resolver chain is ordered redirects first, then wrapper bindings, package
// bindings, user resolvers in the order they were added, the static table
// and finally the extendable table.
//
// Configs can also be read from YAML files with LoadFile.
package config
