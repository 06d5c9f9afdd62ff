// pkg/utils/fadvise_linux.go

package utils

import (
	"os"

	"golang.org/x/sys/unix"
)

// AdviseSequential tells the kernel that f will be read once, front to back.
func AdviseSequential(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
