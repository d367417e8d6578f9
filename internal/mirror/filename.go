package mirror

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/platform"
)

// Filename returns the archive name the mirror uses for a Linux build, or
// false when no build exists for the platform's architecture. pre is the
// pre-release directory name ("rc1", "beta3") or "stable".
//
// Naming changed twice: 1.x and 2.0 join version and suffix with "_",
// 2.1 through 3.x with "-", and both use the x11 platform name with a bare
// bitness. 4.x switched to "linux" and, after alpha14, to full architecture
// names.
func Filename(id, pre string, mono bool, info *platform.Info) (string, bool) {
	typ, join := "", "."
	if mono {
		typ, join = "mono_", "_"
	}

	switch {
	case strings.HasPrefix(id, "1.") || strings.HasPrefix(id, "2.0"):
		arch := info.LegacyArchTag()
		if arch == "" {
			return "", false
		}
		return fmt.Sprintf("Godot_v%s_%s_%sx11%s%s.zip", id, pre, typ, join, arch), true
	case strings.HasPrefix(id, "2.") || strings.HasPrefix(id, "3."):
		arch := info.LegacyArchTag()
		if arch == "" {
			return "", false
		}
		return fmt.Sprintf("Godot_v%s-%s_%sx11%s%s.zip", id, pre, typ, join, arch), true
	case strings.HasPrefix(id, "4."):
		arch := info.ArchTag()
		if earlyAlpha(pre) {
			arch = info.LegacyArchTag()
		}
		if arch == "" {
			return "", false
		}
		return fmt.Sprintf("Godot_v%s-%s_%slinux%s%s.zip", id, pre, typ, join, arch), true
	}
	return "", false
}

// earlyAlpha reports whether pre is one of the 4.0 alphas published before
// the architecture rename.
func earlyAlpha(pre string) bool {
	n, ok := strings.CutPrefix(pre, "alpha")
	if !ok {
		return false
	}
	i, err := strconv.Atoi(n)
	return err == nil && i <= 14
}
