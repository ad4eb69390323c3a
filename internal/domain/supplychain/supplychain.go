// Package supplychain evaluates dependency components against the container
// policy and describes them as a CycloneDX bill of materials.
package supplychain

import (
	"strings"
)

// Component is one dependency as submitted, e.g. {"name": "uvicorn", "version": "0.15.0"}.
// Keys beyond name, version and user are carried into the SBOM untouched.
type Component map[string]string

// Name returns the lower-cased package name.
func (c Component) Name() string { return strings.ToLower(c["name"]) }

// Version returns the declared version.
func (c Component) Version() string { return c["version"] }

// User returns the user the component runs as, if declared.
func (c Component) User() string { return c["user"] }

// Packages with known vulnerabilities in the pinned base image.
var dangerousPackages = map[string]struct{}{
	"pyyaml": {},
	"pillow": {},
}

const (
	rootUser               = "root"
	uvicornName            = "uvicorn"
	outdatedUvicornVersion = "0.1"
)

// PolicyResult lists blocking issues and advisory warnings.
type PolicyResult struct {
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// Passed reports whether no blocking issue was found.
func (r PolicyResult) Passed() bool { return len(r.Issues) == 0 }

// Check evaluates components in order. The result slices are never nil.
func Check(components []Component) PolicyResult {
	res := PolicyResult{Issues: []string{}, Warnings: []string{}}
	for _, c := range components {
		name := c.Name()
		if _, bad := dangerousPackages[name]; bad {
			res.Issues = append(res.Issues, "Package "+name+" flagged for vulnerabilities")
		}
		if name == rootUser || c.User() == rootUser {
			res.Issues = append(res.Issues, "Container must not run as root")
		}
		if name == uvicornName && strings.HasPrefix(c.Version(), outdatedUvicornVersion) {
			res.Warnings = append(res.Warnings, "Outdated uvicorn version detected")
		}
	}
	return res
}
