package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/wrap-client/errors"
	"github.com/wippyai/wrap-client/uri"
	"github.com/wippyai/wrap-client/wrap"
)

// PackageSource turns a bytecode file into a package. The engine implements it.
type PackageSource interface {
	PackageFile(path string) (*wrap.WasmPackage, error)
}

// File is the on-disk client configuration.
//
//	envs:
//	  wrap://ipfs/Qm...: { provider: "https://..." }
//	  wrap://ens/other: '{"key": 1 /* jsonc */}'
//	interfaces:
//	  wrap://iface/logger: [wrap://plugin/console]
//	redirects:
//	  wrap://ens/alias: wrap://fs/module
//	packages:
//	  wrap://fs/module: ${HOME}/modules/module.wasm
type File struct {
	Envs       map[uri.URI]yaml.Node `yaml:"envs"`
	Interfaces map[uri.URI][]uri.URI `yaml:"interfaces"`
	Redirects  map[uri.URI]uri.URI   `yaml:"redirects"`
	Packages   map[uri.URI]string    `yaml:"packages"`
}

// LoadFile reads a YAML config file into a new builder. Relative package
// paths are resolved against the file's directory.
func LoadFile(path string, src PackageSource) (*Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detail("read config file %s", path).
			Cause(err).
			Build()
	}
	return Parse(data, filepath.Dir(path), src)
}

// Parse decodes YAML config data into a new builder. Unknown fields are rejected.
func Parse(data []byte, baseDir string, src PackageSource) (*Builder, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}
	b := NewBuilder()
	if err := f.Apply(b, baseDir, src); err != nil {
		return nil, err
	}
	return b, nil
}

// Apply adds the file's bindings to b.
func (f *File) Apply(b *Builder, baseDir string, src PackageSource) error {
	for u, node := range f.Envs {
		env, err := decodeEnv(&node)
		if err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidEnv).
				URI(u.String()).
				Cause(err).
				Build()
		}
		b.AddEnv(u, env)
	}
	for iface, impls := range f.Interfaces {
		for _, impl := range impls {
			b.AddInterfaceImplementation(iface, impl)
		}
	}
	for from, to := range f.Redirects {
		b.AddRedirect(from, to)
	}
	if len(f.Packages) > 0 && src == nil {
		return errors.InvalidInput(errors.PhaseConfig, "config declares packages but no package source is available")
	}
	for u, path := range f.Packages {
		path = os.ExpandEnv(path)
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		pkg, err := src.PackageFile(path)
		if err != nil {
			return errors.PackageLoad(u.String(), err)
		}
		b.AddWasmPackage(u, pkg)
	}
	return nil
}

// decodeEnv accepts either a YAML mapping or a JSON/JSONC string.
func decodeEnv(node *yaml.Node) (wrap.Env, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var text string
		if err := node.Decode(&text); err != nil {
			return wrap.Env{}, err
		}
		return wrap.ParseEnv(text)
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return wrap.Env{}, err
		}
		return wrap.EnvFromMap(m)
	default:
		return wrap.Env{}, errors.InvalidEnv("env must be a mapping or a JSON string", nil)
	}
}
