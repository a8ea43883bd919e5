package script

import (
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// utilsModule implements spec §6's utils.runtime/utils.buildtime/
// utils.no_config helpers: thin struct-literal builders, exactly as the
// Rust prototype's engine/src/modules/utils.rs shapes them (see
// SPEC_FULL.md §3's supplemented-features note — no behavior change,
// just the Go rendering of the same two-field struct).
func utilsModule() *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"runtime":   starlark.NewBuiltin("utils.runtime", linkTimeBuiltin(xpkg.Runtime)),
		"buildtime": starlark.NewBuiltin("utils.buildtime", linkTimeBuiltin(xpkg.Buildtime)),
		"no_config": starlark.NewBuiltin("utils.no_config", builtinNoConfig),
	})
}

// linkTimeBuiltin returns utils.runtime(pkg) or utils.buildtime(pkg),
// which wrap a dependency handle in the {package=pkg, type=...} record
// planner.package's dependencies list expects.
func linkTimeBuiltin(link xpkg.LinkTime) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var pkg starlark.Value
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "pkg", &pkg); err != nil {
			return nil, err
		}
		return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"package": pkg,
			"type":    starlark.String(link.String()),
		}), nil
	}
}

// builtinNoConfig marks a package definition as non-configurable: spec
// §6 says it "sets defaults = {}, configure = identity". Since an
// absent or None config field already means no_config to
// planner.package's parser, no_config is the identity function on
// whatever definition it is handed — callers use it as
// `planner.package(utils.no_config(def))` to self-document a
// definition's lack of an apply thunk.
func builtinNoConfig(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var def starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "def", &def); err != nil {
		return nil, err
	}
	return def, nil
}
