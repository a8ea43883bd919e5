package script

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/executor"
)

// executorsModule builds the per-build executor module spec §6
// describes: one entry per registered Executor name. Each entry is a
// builtin that converts Starlark keyword arguments into an
// executor.Request, dispatches it, and converts the executor.Response
// back into an output-record struct (status, stdout, stderr).
func executorsModule(ctx context.Context, execs map[string]executor.Executor) *starlarkstruct.Struct {
	fields := make(starlark.StringDict, len(execs))
	for name, ex := range execs {
		fields[name] = starlark.NewBuiltin("executor."+name, dispatchBuiltin(ctx, ex))
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}

func dispatchBuiltin(ctx context.Context, ex executor.Executor) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var program string
		var arguments *starlark.List
		var environment *starlark.Dict
		var workingDir string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs,
			"program", &program,
			"arguments?", &arguments,
			"environment?", &environment,
			"working_dir?", &workingDir,
		); err != nil {
			return nil, err
		}

		req := executor.Request{Program: program}
		if arguments != nil {
			for i := 0; i < arguments.Len(); i++ {
				s, ok := arguments.Index(i).(starlark.String)
				if !ok {
					return nil, fmt.Errorf("%s: arguments must be strings", b.Name())
				}
				req.Arguments = append(req.Arguments, string(s))
			}
		}
		if environment != nil {
			req.Environment = make(map[string]string, environment.Len())
			for _, item := range environment.Items() {
				k, ok := item[0].(starlark.String)
				if !ok {
					return nil, fmt.Errorf("%s: environment keys must be strings", b.Name())
				}
				v, ok := item[1].(starlark.String)
				if !ok {
					return nil, fmt.Errorf("%s: environment values must be strings", b.Name())
				}
				req.Environment[string(k)] = string(v)
			}
		}
		req.WorkingDir = workingDir

		resp, err := ex.Dispatch(ctx, req)
		if err != nil {
			return nil, err
		}
		return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
			"status": starlark.MakeInt(resp.Status),
			"stdout": starlark.String(resp.Stdout),
			"stderr": starlark.String(resp.Stderr),
		}), nil
	}
}
