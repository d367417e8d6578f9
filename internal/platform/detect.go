package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// ErrUnsupportedArch means Godot publishes no builds for the host CPU.
var ErrUnsupportedArch = errors.New("no Godot builds exist for this architecture")

// RealDetector implements Detector for the running host.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reports the host from runtime.GOOS and runtime.GOARCH, plus the
// Linux distribution from gopsutil.
//
// On an unsupported architecture the returned Info is still filled in,
// with an empty Arch, alongside an error wrapping ErrUnsupportedArch;
// installations can then be listed and switched but not fetched.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{OS: runtime.GOOS, ArchRaw: runtime.GOARCH}

	if info.IsLinux() {
		if err := detectDistro(ctx, info); err != nil {
			return nil, err
		}
	}

	arch, err := normalizeArch(runtime.GOARCH)
	if err != nil {
		return info, fmt.Errorf("%w: %w", ErrUnsupportedArch, err)
	}
	info.Arch = arch
	return info, nil
}

// detectDistro fills the distro fields. Only cancellation is an error;
// an unreadable os-release leaves them empty.
func detectDistro(ctx context.Context, info *Info) error {
	distro, _, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return nil
	}
	info.Distro = normalizePlatform(distro)
	info.DistroVersion = normalizePlatform(version)
	return nil
}
