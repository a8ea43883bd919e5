// Package policy provides Open Policy Agent (OPA) integration for the
// build engine: a single Evaluate(ctx, *xpkg.Package) seam the Builder
// consults before dispatching a package's build thunk.
//
// # Architecture
//
// The policy system consists of four main components:
//
//  1. Engine - Compiles and evaluates Rego policies
//  2. Loader - Loads policies from files, directories, and bundles
//  3. Types - Data structures for policies, violations, and results
//  4. Built-in Policies - Pre-defined policies for common requirements
//
// # Usage
//
// Creating a policy engine:
//
//	logger := zerolog.New(os.Stdout)
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Evaluating a package before building it:
//
//	result, err := engine.Evaluate(ctx, pkg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !result.Allowed {
//	    for _, violation := range result.Violations {
//	        fmt.Printf("policy %s violated: %s\n", violation.Policy, violation.Message)
//	    }
//	}
//
// Loading custom policies:
//
//	paths := []string{
//	    "/etc/xuehua/policies",
//	    "/opt/policies/custom.rego",
//	}
//
//	err = engine.LoadPolicies(ctx, paths)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Built-in Policies
//
// The following policies are included by default:
//
//  1. package-naming - Enforces package naming conventions
//  2. required-metadata - Ensures critical metadata keys (license, description) are present
//
// # Custom Policies
//
// Custom policies can be written in Rego and loaded from files:
//
//	package custom.policies.backup
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.package
//	    pkg := input.package
//
//	    not pkg.metadata.backup_contact
//
//	    violation := {
//	        "message": "packages must name a backup contact",
//	        "severity": "error",
//	        "package": pkg.id,
//	    }
//	}
//
// # Policy Evaluation Points
//
// The Builder calls Evaluate once per package, immediately before
// dispatching that package's build thunk, if (and only if) a policy
// bundle path was configured; with no bundle configured the hook is a
// no-op and every build proceeds unevaluated.
//
// # Severity Levels
//
// Violations have four severity levels:
//
//   - info: Informational messages
//   - warning: Issues that should be reviewed but don't block the build
//   - error: Issues that block the build
//   - critical: Severe issues requiring immediate attention
//
// # Hot Reload
//
// The loader supports watching policy files for changes and reloading automatically:
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func(policies []policy.Policy) error {
//	    return engine.LoadPolicies(ctx, paths)
//	})
//
// # Performance
//
// Policies are parsed and prepared once, when loaded, which rejects a
// malformed policy up front. Evaluation does not reuse that prepared
// query: each Evaluate call builds and runs a fresh query from every
// enabled policy's Rego source. The loader caches parsed policy files by
// path.
package policy
