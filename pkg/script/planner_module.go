package script

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// builtinPackage implements planner.package(definition, dependencies),
// spec §4.1: parses definition into a Package, registers it under the
// current namespace, and adds one edge per dependency.
func (h *Host) builtinPackage(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var definition starlark.Value
	var dependencies starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"definition", &definition,
		"dependencies?", &dependencies,
	); err != nil {
		return nil, err
	}

	def, ok := definition.(*starlarkstruct.Struct)
	if !ok {
		return nil, fmt.Errorf("planner.package: definition must be a struct(name=..., metadata=..., build=..., config=...)")
	}

	nameAttr, err := attrOrNil(def, "name")
	if err != nil {
		return nil, err
	}
	name, ok := nameAttr.(starlark.String)
	if !ok {
		return nil, fmt.Errorf("planner.package: definition.name is required and must be a string")
	}

	metaAttr, err := attrOrNil(def, "metadata")
	if err != nil {
		return nil, err
	}
	metadata, err := parseMetadata(metaAttr)
	if err != nil {
		return nil, err
	}

	buildAttr, err := attrOrNil(def, "build")
	if err != nil {
		return nil, err
	}
	build, err := h.parseThunk(buildAttr)
	if err != nil {
		return nil, err
	}

	configAttr, err := attrOrNil(def, "config")
	if err != nil {
		return nil, err
	}
	config, err := h.parseConfig(configAttr)
	if err != nil {
		return nil, err
	}

	deps, err := parseDependencies(dependencies)
	if err != nil {
		return nil, err
	}

	node, err := h.planner.Package(xpkg.Definition{
		Name:         string(name),
		Metadata:     metadata,
		Build:        build,
		Config:       config,
		Dependencies: deps,
	})
	if err != nil {
		return nil, err
	}
	return &nodeHandle{node: node}, nil
}

// builtinConfigure implements planner.configure(source, new_name, modify),
// spec §4.1.
func (h *Host) builtinConfigure(ctx context.Context) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var source starlark.Value
		var newName string
		var modify starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"source", &source,
			"new_name", &newName,
			"modify?", &modify,
		); err != nil {
			return nil, err
		}

		handle, ok := source.(*nodeHandle)
		if !ok {
			return nil, fmt.Errorf("planner.configure: source must be a handle returned by package()/configure()")
		}

		modifyThunk, err := h.parseThunk(modify)
		if err != nil {
			return nil, err
		}

		node, err := h.planner.Configure(ctx, handle.node, newName, modifyThunk)
		if err != nil {
			return nil, err
		}
		return &nodeHandle{node: node}, nil
	}
}

// builtinNamespace implements planner.namespace(token, closure), spec
// §4.1: pushes token, runs closure, pops.
func (h *Host) builtinNamespace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var token string
	var closure starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "token", &token, "closure", &closure); err != nil {
		return nil, err
	}
	err := h.planner.Namespace(token, func() error {
		_, callErr := starlark.Call(thread, closure, nil, nil)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return starlark.None, nil
}
