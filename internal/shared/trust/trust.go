// Package trust guards steps that hold backend credentials. Whether a build
// is trusted is fixed at compile time by build constraints, so client-facing
// artifacts (js/wasm) get a guard that always refuses.
package trust

import "pet-triage-backend/internal/shared/apperr"

// Check fails with a security violation when component runs in an
// untrusted build.
func Check(component string) error {
	if untrustedRuntime {
		return apperr.SecurityViolation("%s must run in the server runtime", component)
	}
	return nil
}

// Trusted reports whether this binary may hold backend credentials.
func Trusted() bool { return !untrustedRuntime }
