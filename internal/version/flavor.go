package version

import (
	"fmt"
	"regexp"
)

// Build flavors. Mono builds bundle the .NET runtime.
const (
	FlavorStandard = "standard"
	FlavorMono     = "mono"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidFlavor reports whether f names a known build flavor.
func ValidFlavor(f string) bool {
	return f == FlavorStandard || f == FlavorMono
}

// ValidateIdentifier rejects identifiers that cannot be used as a path
// segment.
func ValidateIdentifier(id string) error {
	if id == "" || id == "." || id == ".." || !identifierRegex.MatchString(id) {
		return fmt.Errorf("invalid version identifier: %q", id)
	}
	return nil
}
