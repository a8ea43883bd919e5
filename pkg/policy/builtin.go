package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		packageNamingPolicy(),
		requiredMetadataPolicy(),
	}
}

// packageNamingPolicy enforces package naming conventions.
func packageNamingPolicy() Policy {
	return Policy{
		Name:        "package-naming",
		Description: "Enforces package naming conventions (lowercase, alphanumeric, hyphens only)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package xuehua.policies.naming

import rego.v1

deny contains violation if {
	input.package
	name := input.package.name

	not regex.match("^[a-z0-9-]+$", name)
	violation := {
		"message": sprintf("package name '%s' must contain only lowercase letters, numbers, and hyphens", [name]),
		"severity": "error",
		"package": input.package.id,
	}
}

deny contains violation if {
	input.package
	name := input.package.name

	regex.match("^-.*", name)
	violation := {
		"message": sprintf("package name '%s' must not start with a hyphen", [name]),
		"severity": "error",
		"package": input.package.id,
	}
}

deny contains violation if {
	input.package
	name := input.package.name

	count(name) < 2
	violation := {
		"message": sprintf("package name '%s' must be at least 2 characters long", [name]),
		"severity": "error",
		"package": input.package.id,
	}
}

deny contains violation if {
	input.package
	name := input.package.name

	count(name) > 63
	violation := {
		"message": sprintf("package name '%s' must not exceed 63 characters", [name]),
		"severity": "error",
		"package": input.package.id,
	}
}`,
	}
}

// requiredMetadataPolicy ensures every package carries a license and a
// description, the way the teacher's required-labels policy enforced
// env/owner labels on infrastructure resources.
func requiredMetadataPolicy() Policy {
	return Policy{
		Name:        "required-metadata",
		Description: "Ensures critical metadata keys (license, description) are present on every package",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"metadata"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package xuehua.policies.metadata

import rego.v1

required_keys := ["license", "description"]

deny contains violation if {
	input.package
	some key in required_keys

	not input.package.metadata[key]
	violation := {
		"message": sprintf("package %s missing recommended metadata key: %s", [input.package.id, key]),
		"severity": "warning",
		"package": input.package.id,
	}
}`,
	}
}
