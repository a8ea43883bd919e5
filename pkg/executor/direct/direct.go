// Package direct implements an unsandboxed Executor backend: it runs
// Requests as ordinary subprocesses rooted at the build environment
// directory, with no namespace isolation. It grants none of the
// isolation guarantees spec §4.3 requires of a production backend; it
// exists for development and test environments where user namespaces
// are unavailable (e.g. inside a container without CAP_SYS_ADMIN),
// mirroring the dual sandboxed/direct backend split the original
// prototype (src/executor) offered.
package direct

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/executor"
)

// Executor runs Requests as plain subprocesses under root.
type Executor struct {
	root string
}

// Factory is the executor.Factory a Manager registers for the "direct"
// name.
func Factory(root string, _ executor.Options) (executor.Executor, error) {
	return &Executor{root: root}, nil
}

// Dispatch runs req.Program directly, without sandboxing.
func (e *Executor) Dispatch(ctx context.Context, req executor.Request) (executor.Response, error) {
	wd := e.root
	if req.WorkingDir != "" {
		wd = filepath.Join(e.root, req.WorkingDir)
	}

	cmd := exec.CommandContext(ctx, req.Program, req.Arguments...)
	cmd.Dir = wd
	cmd.Env = make([]string, 0, len(req.Environment))
	for k, v := range req.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	resp := executor.Response{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return resp, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		resp.Status = exitErr.ExitCode()
		return resp, nil
	}
	return executor.Response{}, engineerr.NewExecutorExternal("dispatch", err)
}
