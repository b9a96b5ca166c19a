//go:build linux || darwin

package output

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// availableBytes returns the space available to unprivileged users on the
// file system holding path.
func availableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}

func checkSpace(dir string, need uint64) error {
	avail, err := availableBytes(dir)
	if err != nil {
		return fmt.Errorf("%w: statfs %s: %v", errSpaceUnknown, dir, err)
	}
	if need > avail {
		return fmt.Errorf("%w: need %d bytes, %d available in %s", ErrInsufficientSpace, need, avail, dir)
	}
	return nil
}
