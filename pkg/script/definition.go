package script

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// attrOrNil looks up a struct attribute, returning (nil, nil) when it is
// absent rather than erroring (starlarkstruct reports an absent field as
// a NoSuchAttrError), for call sites that treat an absent field as "use
// the default".
func attrOrNil(st *starlarkstruct.Struct, name string) (starlark.Value, error) {
	v, err := st.Attr(name)
	if _, ok := err.(starlark.NoSuchAttrError); ok {
		return nil, nil
	}
	return v, err
}

func isNoneOrNil(v starlark.Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(starlark.NoneType)
	return ok
}

// parseMetadata converts a definition's metadata field (a dict or
// struct, or absent) into the opaque metadata bag xpkg.Package carries.
func parseMetadata(v starlark.Value) (map[string]any, error) {
	if isNoneOrNil(v) {
		return map[string]any{}, nil
	}
	out, err := fromStarlark(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("script: metadata must be a dict or struct")
	}
	return m, nil
}

// parseDependencies converts a dependencies list (each element a
// utils.runtime(pkg)/utils.buildtime(pkg) record) into DepSpecs.
func parseDependencies(v starlark.Value) ([]xpkg.DepSpec, error) {
	if isNoneOrNil(v) {
		return nil, nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("script: dependencies must be a list")
	}
	out := make([]xpkg.DepSpec, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		st, ok := list.Index(i).(*starlarkstruct.Struct)
		if !ok {
			return nil, fmt.Errorf("script: dependency %d is not a utils.runtime/utils.buildtime value", i)
		}
		pkgAttr, err := attrOrNil(st, "package")
		if err != nil || isNoneOrNil(pkgAttr) {
			return nil, fmt.Errorf("script: dependency %d missing package", i)
		}
		ref, ok := pkgAttr.(xpkg.NodeRef)
		if !ok {
			return nil, fmt.Errorf("script: dependency %d's package is not a package()/configure() handle", i)
		}
		typeAttr, err := attrOrNil(st, "type")
		if err != nil || isNoneOrNil(typeAttr) {
			return nil, fmt.Errorf("script: dependency %d missing type", i)
		}
		typeStr, ok := typeAttr.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("script: dependency %d's type is not a string", i)
		}
		var link xpkg.LinkTime
		switch string(typeStr) {
		case "runtime":
			link = xpkg.Runtime
		case "buildtime":
			link = xpkg.Buildtime
		default:
			return nil, fmt.Errorf("script: dependency %d has unknown type %q", i, string(typeStr))
		}
		out = append(out, xpkg.DepSpec{Ref: ref, Link: link})
	}
	return out, nil
}

// parseThunk converts a definition field expected to be callable (or
// absent/None) into an xpkg.Thunk.
func (h *Host) parseThunk(v starlark.Value) (xpkg.Thunk, error) {
	if isNoneOrNil(v) {
		return nil, nil
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("script: expected a callable, got %s", v.Type())
	}
	return &thunk{host: h, fn: fn}, nil
}

// parseConfigurator converts a config.apply field into an
// xpkg.Configurator.
func (h *Host) parseConfigurator(v starlark.Value) (xpkg.Configurator, error) {
	if isNoneOrNil(v) {
		return nil, nil
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("script: expected a callable, got %s", v.Type())
	}
	return &configurator{host: h, fn: fn}, nil
}

// parseConfig converts a definition's config field — absent/None means
// utils.no_config, otherwise a struct(current=..., apply=...) — into a
// PackageConfig.
func (h *Host) parseConfig(v starlark.Value) (xpkg.PackageConfig, error) {
	if isNoneOrNil(v) {
		return xpkg.PackageConfig{}, nil
	}
	st, ok := v.(*starlarkstruct.Struct)
	if !ok {
		return xpkg.PackageConfig{}, fmt.Errorf("script: config must be a struct with current/apply fields")
	}
	currentAttr, err := attrOrNil(st, "current")
	if err != nil {
		return xpkg.PackageConfig{}, err
	}
	var current any
	if !isNoneOrNil(currentAttr) {
		current, err = fromStarlark(currentAttr)
		if err != nil {
			return xpkg.PackageConfig{}, err
		}
	}
	applyAttr, err := attrOrNil(st, "apply")
	if err != nil {
		return xpkg.PackageConfig{}, err
	}
	apply, err := h.parseConfigurator(applyAttr)
	if err != nil {
		return xpkg.PackageConfig{}, err
	}
	return xpkg.PackageConfig{Current: current, Apply: apply}, nil
}

// parsePartial converts a configure-apply thunk's return value (a
// struct(dependencies=..., metadata=..., build=...)) into an
// xpkg.Partial, per spec §4.1 "configure" splicing a fresh Partial into
// the cloned package.
func (h *Host) parsePartial(v starlark.Value) (xpkg.Partial, error) {
	st, ok := v.(*starlarkstruct.Struct)
	if !ok {
		return xpkg.Partial{}, fmt.Errorf("script: apply thunk result must be a struct(dependencies=..., metadata=..., build=...)")
	}
	depsAttr, err := attrOrNil(st, "dependencies")
	if err != nil {
		return xpkg.Partial{}, err
	}
	deps, err := parseDependencies(depsAttr)
	if err != nil {
		return xpkg.Partial{}, err
	}
	metaAttr, err := attrOrNil(st, "metadata")
	if err != nil {
		return xpkg.Partial{}, err
	}
	meta, err := parseMetadata(metaAttr)
	if err != nil {
		return xpkg.Partial{}, err
	}
	buildAttr, err := attrOrNil(st, "build")
	if err != nil {
		return xpkg.Partial{}, err
	}
	build, err := h.parseThunk(buildAttr)
	if err != nil {
		return xpkg.Partial{}, err
	}
	return xpkg.Partial{Dependencies: deps, Metadata: meta, Build: build}, nil
}
