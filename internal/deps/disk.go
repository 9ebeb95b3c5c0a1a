package deps

import (
	"fmt"

	"golang.org/x/sys/unix"

	"slidecast/internal/services"
)

// MinFreeBytes is the least free space the work directory needs before a
// render starts. Frames plus intermediates for a feature run to a few
// hundred megabytes; one gigabyte leaves headroom.
const MinFreeBytes = 1 << 30

// CheckDiskSpace fails when the filesystem holding path has less than
// required bytes available.
func CheckDiskSpace(path string, required uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < required {
		return services.Wrap(services.ErrValidation, "deps", "disk space",
			fmt.Sprintf("%s has %d bytes free, need %d", path, available, required), nil)
	}
	return nil
}
