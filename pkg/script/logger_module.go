package script

import (
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// loggerModule implements spec §6's logger module: info/warn/error/
// debug/trace convenience builtins plus the generic log(level, msg).
func (h *Host) loggerModule() *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"info":  starlark.NewBuiltin("logger.info", h.logLevelBuiltin("info")),
		"warn":  starlark.NewBuiltin("logger.warn", h.logLevelBuiltin("warn")),
		"error": starlark.NewBuiltin("logger.error", h.logLevelBuiltin("error")),
		"debug": starlark.NewBuiltin("logger.debug", h.logLevelBuiltin("debug")),
		"trace": starlark.NewBuiltin("logger.trace", h.logLevelBuiltin("trace")),
		"log":   starlark.NewBuiltin("logger.log", h.builtinLog),
	})
}

func (h *Host) logLevelBuiltin(level string) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var msg string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "msg", &msg); err != nil {
			return nil, err
		}
		h.dispatchLog(level, msg)
		return starlark.None, nil
	}
}

func (h *Host) builtinLog(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var level, msg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "level", &level, "msg", &msg); err != nil {
		return nil, err
	}
	h.dispatchLog(level, msg)
	return starlark.None, nil
}

func (h *Host) dispatchLog(level, msg string) {
	switch level {
	case "warn":
		h.logger.Warn(msg)
	case "error":
		h.logger.Error(msg)
	case "debug":
		h.logger.Debug(msg)
	case "trace":
		h.logger.Trace(msg)
	default:
		h.logger.Info(msg)
	}
}
