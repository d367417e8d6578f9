package store

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/version"
)

// Key identifies an installation: a version identifier plus a flavor.
// Its string form "<identifier>-<flavor>" names the install directory.
type Key struct {
	ID     string
	Flavor string
}

func (k Key) String() string {
	return k.ID + "-" + k.Flavor
}

// Validate checks that k can name a directory under the data root.
func (k Key) Validate() error {
	if err := version.ValidateIdentifier(k.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if !version.ValidFlavor(k.Flavor) {
		return fmt.Errorf("%w: unknown flavor %q", ErrInvalidKey, k.Flavor)
	}
	return nil
}

// ParseKey parses "<identifier>-<flavor>". The flavor is the last dash
// segment, so "4.3-beta2-mono" is identifier "4.3-beta2", flavor "mono".
func ParseKey(s string) (Key, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 {
		return Key{}, fmt.Errorf("%w: %q has no flavor suffix", ErrInvalidKey, s)
	}
	k := Key{ID: s[:i], Flavor: s[i+1:]}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}

// ResolveKey accepts either a full key or a bare identifier, which gets
// defaultFlavor: "4.2.1" resolves to 4.2.1-standard, "4.2.1-mono" to itself.
func ResolveKey(s, defaultFlavor string) (Key, error) {
	if k, err := ParseKey(s); err == nil {
		return k, nil
	}
	k := Key{ID: s, Flavor: defaultFlavor}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	return k, nil
}
