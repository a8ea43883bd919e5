// Package executor implements the controlled egress through which a build
// recipe performs side effects (process launch, filesystem writes), per
// spec §4.3. An Executor mediates one build in one environment; a Manager
// holds the name → factory registry the Builder publishes into the
// script's environment for the duration of one package's build.
package executor

import "context"

// Request is a build recipe's description of an action to perform.
type Request struct {
	Program     string
	Arguments   []string
	Environment map[string]string
	WorkingDir  string
}

// Response is the observable outcome of a dispatched Request.
type Response struct {
	Status int
	Stdout string
	Stderr string
}

// Executor dispatches Requests inside one provisioned build environment.
// No implementation guarantees determinism of the program launched; the
// isolation an implementation provides is its own (the userns backend
// uses Linux namespaces, the direct backend provides none).
type Executor interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// Options configures the isolation a Factory grants its Executors.
// Construction configuration per spec §4.3: network off and no
// capabilities by default.
type Options struct {
	Network          bool
	AddCapabilities  []string
	DropCapabilities []string
}

// Factory produces an Executor bound to one build's environment
// directory.
type Factory func(environmentPath string, opts Options) (Executor, error)

// Manager holds the name → Factory registry the Builder publishes into
// the script's executor module for each build (spec §4.3
// "Registration").
type Manager struct {
	factories map[string]Factory
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{factories: make(map[string]Factory)}
}

// Register adds a named Factory. Re-registering a name replaces it.
func (m *Manager) Register(name string, f Factory) {
	m.factories[name] = f
}

// New instantiates every registered Factory against environmentPath,
// returning the name → Executor map the Builder publishes into the
// script's executor module.
func (m *Manager) New(environmentPath string, opts Options) (map[string]Executor, error) {
	out := make(map[string]Executor, len(m.factories))
	for name, f := range m.factories {
		ex, err := f(environmentPath, opts)
		if err != nil {
			return nil, err
		}
		out[name] = ex
	}
	return out, nil
}

// Names lists the registered executor names, for logging/diagnostics.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.factories))
	for name := range m.factories {
		out = append(out, name)
	}
	return out
}
