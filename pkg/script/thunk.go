package script

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// thunk wraps a starlark.Callable so it satisfies xpkg.Thunk, letting the
// Builder and Planner invoke build/modify callbacks without this
// package's starlark types leaking into engine-core code. All
// invocations serialize through the Host's buildMu, since every thunk
// from one Host shares a single starlark.Thread.
type thunk struct {
	host *Host
	fn   starlark.Callable
}

func (t *thunk) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	t.host.buildMu.Lock()
	defer t.host.buildMu.Unlock()

	kwargs, err := argsToKwargs(ctx, args)
	if err != nil {
		return nil, err
	}

	result, err := starlark.Call(t.host.thread, t.fn, nil, kwargs)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return nil, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return nil, err
	}

	return resultToArgs(result)
}

// configurator wraps a starlark.Callable so it satisfies
// xpkg.Configurator, used for a package's apply thunk (the script-level
// callable behind config.apply).
type configurator struct {
	host *Host
	fn   starlark.Callable
}

func (c *configurator) Apply(ctx context.Context, value any) (xpkg.Partial, error) {
	c.host.buildMu.Lock()
	defer c.host.buildMu.Unlock()

	v, err := toStarlark(value)
	if err != nil {
		return xpkg.Partial{}, err
	}

	result, err := starlark.Call(c.host.thread, c.fn, starlark.Tuple{v}, nil)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return xpkg.Partial{}, fmt.Errorf("%s", evalErr.Backtrace())
		}
		return xpkg.Partial{}, err
	}

	return c.host.parsePartial(result)
}
