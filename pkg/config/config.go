// Package config loads the engine-wide settings a Planner/Builder/Store
// triple needs to start: where the store lives on disk, where builds are
// staged, how many builds run concurrently, and the sandbox defaults new
// executors are constructed with. Settings come from a YAML file,
// validated with github.com/go-playground/validator/v10 struct tags, in
// the shape the teacher's pkg/config read CUE-sourced settings before
// handing them to pkg/engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/catdeal3r/xuehua/pkg/executor"
	"github.com/catdeal3r/xuehua/pkg/store"
)

// SandboxConfig is the isolation new executors are constructed with,
// per build. Every package's build gets the same options.
type SandboxConfig struct {
	// Network allows the build's executors to reach the network.
	// Defaults to false: spec §4.3 says builds are constructed with
	// network off and no capabilities.
	Network bool `yaml:"network"`

	// AddCapabilities lists Linux capability names (e.g. "CAP_NET_BIND_SERVICE")
	// granted to every executor this engine instance constructs.
	AddCapabilities []string `yaml:"add_capabilities,omitempty"`

	// DropCapabilities lists capability names explicitly denied even if
	// the ambient process holds them.
	DropCapabilities []string `yaml:"drop_capabilities,omitempty"`
}

// ToOptions converts a SandboxConfig into the executor.Options a
// Factory expects.
func (s SandboxConfig) ToOptions() executor.Options {
	return executor.Options{
		Network:          s.Network,
		AddCapabilities:  append([]string(nil), s.AddCapabilities...),
		DropCapabilities: append([]string(nil), s.DropCapabilities...),
	}
}

// EngineConfig is the frozen snapshot of engine-wide settings a single
// run reads at startup. It is never mutated mid-run; Watch only ever
// delivers a fresh EngineConfig to a reload callback, it never edits one
// in place.
type EngineConfig struct {
	// StoreRoot is the directory holding the content-addressed store:
	// StoreRoot/store.db and StoreRoot/content/.
	StoreRoot string `yaml:"store_root" validate:"required"`

	// BuildRoot is the directory under which one subdirectory per
	// in-flight build node is staged.
	BuildRoot string `yaml:"build_root" validate:"required"`

	// Concurrency bounds the number of packages the Builder builds at
	// once. Must be at least 1.
	Concurrency int `yaml:"concurrency" validate:"required,min=1"`

	// Sandbox is the default isolation granted to executors.
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// Default returns an EngineConfig with conservative defaults: sequential
// builds, network off, no extra capabilities. StoreRoot and BuildRoot
// still must be supplied by the caller or a loaded file.
func Default() EngineConfig {
	return EngineConfig{
		Concurrency: 1,
		Sandbox:     SandboxConfig{Network: false},
	}
}

// StoreConfig derives the store.Config this EngineConfig implies.
func (c EngineConfig) StoreConfig() store.Config {
	return store.Config{
		DBPath:     filepath.Join(c.StoreRoot, "store.db"),
		ContentDir: filepath.Join(c.StoreRoot, "content"),
	}
}

var validate = validator.New()

// Load reads and validates an EngineConfig from a YAML file at path.
func Load(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}
