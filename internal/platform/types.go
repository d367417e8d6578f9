// Package platform detects the host OS and architecture and maps them to the
// naming Godot uses for its release archives and executables.
//
// Distribution details come from gopsutil and are informational only; they
// are exposed to the Lua settings file through a read-only platform table.
package platform

import "context"

// Info contains platform detection information.
type Info struct {
	OS            string // "linux", "freebsd", ...
	Arch          string // normalized: "amd64", "arm64", "386", "arm"
	ArchRaw       string // original GOARCH
	Distro        string // distro ID (Linux only, e.g. "ubuntu")
	DistroVersion string // distro version (Linux only, e.g. "22.04")
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// Is64Bit returns true for 64-bit architectures.
func (i *Info) Is64Bit() bool {
	return i.Arch == "amd64" || i.Arch == "arm64"
}

// ArchTag returns the architecture tag Godot 4 uses in archive and executable
// names, e.g. "x86_64" in Godot_v4.2.1-stable_linux.x86_64.
func (i *Info) ArchTag() string {
	switch i.Arch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86_32"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm32"
	default:
		return ""
	}
}

// LegacyArchTag returns the tag used by Godot 1.x-3.x and early 4.0 alphas ("64" or "32").
func (i *Info) LegacyArchTag() string {
	switch i.Arch {
	case "amd64":
		return "64"
	case "386":
		return "32"
	default:
		return ""
	}
}

// ExecutableSuffixes lists the file extensions a Godot executable built for
// this platform can carry, newest naming first.
func (i *Info) ExecutableSuffixes() []string {
	var suffixes []string
	if tag := i.ArchTag(); tag != "" {
		suffixes = append(suffixes, tag)
	}
	if tag := i.LegacyArchTag(); tag != "" {
		suffixes = append(suffixes, tag)
	}
	return suffixes
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// Static is a Detector that always returns the same Info.
type Static struct {
	Info *Info
}

// Detect returns the configured info.
func (s Static) Detect(context.Context) (*Info, error) {
	return s.Info, nil
}
