//go:build linux

// Package userns implements the reference Executor backend of spec
// §4.3: a Linux user-namespace sandbox. Each dispatched Request runs in
// a fresh mount+user namespace with its working directory inside the
// build's environment directory, with no ambient environment variables,
// its own process group, no network unless Options.Network is set, and
// no capabilities beyond Options.AddCapabilities minus DropCapabilities
// (see capabilities.go). No chroot or bind mounts are set up: the
// process sees the host filesystem through its copy of the parent's
// mount table, and the closure's artifacts are not mounted into the
// environment. Grounded on distri's internal/build.go sandbox
// setup (Cloneflags/UidMappings) and its usernsError diagnostic.
package userns

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/executor"
)

// Executor runs Requests inside a user-namespace sandbox rooted at root.
type Executor struct {
	root string
	opts executor.Options
}

// Factory is the executor.Factory a Manager registers for the "userns"
// name (spec §4.3 "Registration").
func Factory(root string, opts executor.Options) (executor.Executor, error) {
	return &Executor{root: root, opts: opts}, nil
}

// Dispatch launches req.Program inside the namespace. Arguments and
// environment are exactly what the Request supplies; the sandbox grants
// no ambient environment and sets its working directory inside root.
func (e *Executor) Dispatch(ctx context.Context, req executor.Request) (executor.Response, error) {
	wd := e.root
	if req.WorkingDir != "" {
		wd = filepath.Join(e.root, req.WorkingDir)
	}

	ambient, err := ambientCapabilities(e.opts.AddCapabilities, e.opts.DropCapabilities)
	if err != nil {
		return executor.Response{}, engineerr.NewExecutorExternal("dispatch", err)
	}

	cmd := exec.CommandContext(ctx, req.Program, req.Arguments...)
	cmd.Dir = wd
	cmd.Env = envSlice(req.Environment)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags:  syscall.CLONE_NEWNS | syscall.CLONE_NEWUSER | netNamespaceFlag(e.opts.Network),
		UidMappings: idMappings(),
		GidMappings: idMappings(),
		Setpgid:     true,
		Pdeathsig:   syscall.SIGKILL,
		AmbientCaps: ambient,
	}

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	resp := executor.Response{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		resp.Status = 0
		return resp, nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		resp.Status = exitErr.ExitCode()
		return resp, nil
	}

	if hint := usernsError(); hint != "" {
		return executor.Response{}, engineerr.NewExecutorExternal("dispatch", fmt.Errorf("%w\n%s", err, hint))
	}
	return executor.Response{}, engineerr.NewExecutorExternal("dispatch", err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func netNamespaceFlag(network bool) uintptr {
	if network {
		return 0
	}
	return syscall.CLONE_NEWNET
}

func idMappings() []syscall.SysProcIDMap {
	hostID := 1000
	if u, err := user.Current(); err == nil {
		if id, err := strconv.Atoi(u.Uid); err == nil {
			hostID = id
		}
	}
	return []syscall.SysProcIDMap{{ContainerID: 0, HostID: hostID, Size: 1}}
}

func envSlice(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}

// usernsError mirrors distri's diagnostic: when user namespaces are
// disabled at the kernel level, surface the sysctl fix alongside the
// underlying error instead of a bare "operation not permitted".
func usernsError() string {
	var fixes []string
	if b, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone"); err == nil {
		if strings.TrimSpace(string(b)) != "1" {
			fixes = append(fixes, "sysctl -w kernel.unprivileged_userns_clone=1")
		}
	}
	if b, err := os.ReadFile("/proc/sys/user/max_user_namespaces"); err == nil {
		if strings.TrimSpace(string(b)) == "0" {
			fixes = append(fixes, "sysctl -w user.max_user_namespaces=1000")
		}
	}
	if len(fixes) == 0 {
		return ""
	}
	return "try:\n" + strings.Join(fixes, "\n")
}
