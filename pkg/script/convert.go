package script

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/executor"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// toStarlark converts a plain Go value into a Starlark value, following
// the teacher's toStarlarkValue conversion table (pkg/config/starlark_eval.go)
// extended with the xpkg.Id values that flow between the engine and
// recipe scripts.
func toStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case starlark.Value:
		return val, nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case xpkg.Id:
		return starlark.String(val.String()), nil
	case []xpkg.Id:
		list := make([]starlark.Value, len(val))
		for i, id := range val {
			list[i] = starlark.String(id.String())
		}
		return starlark.NewList(list), nil
	case []interface{}:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("script: unsupported type %T", v)
	}
}

// fromStarlark is the inverse conversion, applied to values recipe
// scripts return back to the engine.
func fromStarlark(v starlark.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		if i, ok := val.Int64(); ok {
			return i, nil
		}
		return nil, fmt.Errorf("script: integer too large")
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, len(val))
		for i, item := range val {
			iv, err := fromStarlark(item)
			if err != nil {
				return nil, err
			}
			out[i] = iv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("script: dict key must be a string")
			}
			value, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = value
		}
		return out, nil
	case *starlarkstruct.Struct:
		out := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlark(attr)
			if err != nil {
				return nil, err
			}
			out[name] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("script: unsupported starlark type %s", v.Type())
	}
}

// argsToKwargs converts a Thunk.Invoke args map into Starlark keyword
// arguments, special-casing the "executors" argument: it carries live
// Executor objects the Builder publishes for exactly one build (spec
// §4.3 "Registration"), not plain data, so it gets its own conversion
// into per-name dispatch builtins rather than going through toStarlark.
func argsToKwargs(ctx context.Context, args map[string]any) ([]starlark.Tuple, error) {
	kwargs := make([]starlark.Tuple, 0, len(args))
	for k, v := range args {
		var sv starlark.Value
		var err error
		switch val := v.(type) {
		case map[string]executor.Executor:
			sv = executorsModule(ctx, val)
		default:
			sv, err = toStarlark(v)
		}
		if err != nil {
			return nil, fmt.Errorf("script: convert argument %q: %w", k, err)
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(k), sv})
	}
	return kwargs, nil
}

// resultToArgs converts a build/modify thunk's single Starlark return
// value back into a named-results map. None (the common case for build
// thunks, which communicate success only through the error return and
// side effects performed via the executors argument) yields a nil map.
func resultToArgs(v starlark.Value) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(starlark.NoneType); ok {
		return nil, nil
	}
	out, err := fromStarlark(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("script: thunk result must be a dict, struct, or none, got %T", out)
	}
	return m, nil
}
