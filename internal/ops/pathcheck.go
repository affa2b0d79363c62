package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // for import (read file)
	PathCheckWrite                      // for export (write file)
)

// ValidatePath accepts only a .jsonl file sitting directly in the exports
// directory or an allowed_paths entry. Traversal and symlinks are refused.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	switch {
	case path == "":
		return errors.NewInvalidField("path", "is required")
	case containsTraversal(path):
		return errors.NewInvalidField("path", "must not contain '..'")
	}

	target, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return errors.NewInvalidField("path", err.Error())
	}
	if !strings.EqualFold(filepath.Ext(target), ".jsonl") {
		return errors.NewInvalidField("path", "must end in .jsonl")
	}

	// allow_unsafe_paths lifts the directory allowlist; symlinks stay refused.
	if cfg == nil || !cfg.AllowUnsafePaths {
		roots, err := exportRoots(cfg)
		if err != nil {
			return err
		}
		dir := filepath.Dir(target)
		if !slices.Contains(roots, dir) {
			return errors.NewInvalidField("path",
				fmt.Sprintf("must be a file directly inside one of %v", roots))
		}
		if isSymlink(dir) {
			return errors.NewInvalidField("path", "parent directory is a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return errors.NewNotFound("file", path)
		}
	}
	if isSymlink(target) {
		return errors.NewInvalidField("path", "is a symlink")
	}
	return nil
}

// exportRoots lists the directories import and export may touch: the exports
// directory first, then every absolute allowed_paths entry. Symlinked roots
// are resolved so the parent comparison in ValidatePath is exact.
func exportRoots(cfg *config.Config) ([]string, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	exports, err := cfg.ExportsDir()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	candidates := append([]string{exports}, cfg.AllowedPaths...)
	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !filepath.IsAbs(c) {
			continue
		}
		root := filepath.Clean(c)
		if isSymlink(root) {
			resolved, err := filepath.EvalSymlinks(root)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("allowed path %s: %v", c, err))
			}
			root = resolved
		}
		roots = append(roots, root)
	}
	return roots, nil
}

func isSymlink(p string) bool {
	info, err := os.Lstat(p)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// containsTraversal reports whether any component of path is "..".
// Forward slashes count as separators on every platform.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}

// SanitizeForFilename makes s safe to embed in a file name.
func SanitizeForFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == '.' || r == ' ':
			b.WriteByte('-')
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}
	s = b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		s = "unnamed"
	}
	return s
}
