//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/lentoflow/lento/internal/errors"
)

// openImportFile opens path read-only without following a symlink in the final
// component. Directory components are covered by ValidatePath.
func openImportFile(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, syscall.ELOOP):
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		case stderrors.Is(err, syscall.ENOENT):
			return nil, errors.NewNotFound("file", path)
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
