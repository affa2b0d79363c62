//go:build windows

package ops

import (
	"os"

	"github.com/lentoflow/lento/internal/errors"
)

// openImportFile opens path read-only. Windows has no O_NOFOLLOW; ValidatePath
// has already rejected symlinks.
func openImportFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("file", path)
		}
		return nil, errors.NewInternal(err)
	}
	return f, nil
}
