// Package config loads and watches the engine's ambient settings.
//
// A minimal config file looks like:
//
//	store_root: /var/lib/xuehua/store
//	build_root: /var/lib/xuehua/build
//	concurrency: 4
//	sandbox:
//	  network: false
//	  add_capabilities: []
//
// Load parses and validates one snapshot; Watch additionally reloads it
// on every write, for callers that want to pick up edits without
// restarting. The engine's own Planner/Builder/Store construction only
// ever uses a Load'd snapshot — Watch is plumbing exposed for a future
// daemon front-end, not something the one-shot CLI needs.
package config
