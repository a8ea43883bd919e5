//go:build linux

package userns

import "fmt"

// capabilityByName maps the names an Options.AddCapabilities or
// DropCapabilities entry may use to their Linux capability bit number,
// from linux/include/uapi/linux/capability.h. Only the capabilities a
// build sandbox plausibly needs are named; a name outside this table
// is a configuration error rather than a silent no-op.
var capabilityByName = map[string]uintptr{
	"CAP_CHOWN":            0,
	"CAP_DAC_OVERRIDE":     1,
	"CAP_KILL":             5,
	"CAP_SETGID":           6,
	"CAP_SETUID":           7,
	"CAP_SETPCAP":          8,
	"CAP_NET_BIND_SERVICE": 10,
	"CAP_NET_ADMIN":        12,
	"CAP_NET_RAW":          13,
	"CAP_SYS_CHROOT":       18,
	"CAP_SYS_PTRACE":       19,
	"CAP_SYS_ADMIN":        21,
	"CAP_SYS_TIME":         25,
	"CAP_MKNOD":            27,
	"CAP_SETFCAP":          31,
}

// ambientCapabilities resolves add/drop into the bit set to carry into
// a dispatched process's ambient capability set via SysProcAttr, with
// drop always winning over add for a name listed in both. It rejects
// unrecognized names outright rather than treating them as a no-op,
// since a typo in add_capabilities/drop_capabilities would otherwise
// silently grant or withhold the wrong privilege.
//
// Setting these bits only works because Dispatch's CLONE_NEWUSER maps
// the caller to uid 0 inside the new namespace, which starts with a
// full permitted/inheritable set there; AmbientCaps only ever narrows
// that down to what was explicitly requested, never grants anything
// the namespace didn't already hold.
func ambientCapabilities(add, drop []string) ([]uintptr, error) {
	dropped := make(map[string]bool, len(drop))
	for _, name := range drop {
		if _, ok := capabilityByName[name]; !ok {
			return nil, fmt.Errorf("userns: unknown capability %q in drop_capabilities", name)
		}
		dropped[name] = true
	}

	bits := make([]uintptr, 0, len(add))
	for _, name := range add {
		bit, ok := capabilityByName[name]
		if !ok {
			return nil, fmt.Errorf("userns: unknown capability %q in add_capabilities", name)
		}
		if dropped[name] {
			continue
		}
		bits = append(bits, bit)
	}
	return bits, nil
}
