// Package posix checks and changes ownership and permissions of directories
// and resolves user and group names through getent.
package posix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidDirName is returned for paths outside ^(/[\w-]+)+$.
	ErrInvalidDirName = errors.New("directory name has invalid characters")
	// ErrParentMissing is returned when the parent directory does not exist.
	ErrParentMissing = errors.New("parent directory does not exist")
	// ErrNotDirectory is returned when the path exists but is not a directory.
	ErrNotDirectory = errors.New("path exists but is not a directory")
)

var dirNamePattern = regexp.MustCompile(`^(/[\w-]+)+$`)

// CheckDirName validates that path is absolute and made of [A-Za-z0-9_-]
// components only.
func CheckDirName(path string) error {
	if !dirNamePattern.MatchString(path) {
		return fmt.Errorf("%w: %q", ErrInvalidDirName, path)
	}
	return nil
}

// CheckDir reports whether path is an existing directory. The error reports
// the first failed precondition: a valid name, an existing parent, and the
// path being a directory or absent. exists is meaningful even when err is set.
func CheckDir(path string) (exists bool, err error) {
	exists = isDir(path)

	if err := CheckDirName(path); err != nil {
		return exists, err
	}
	if !isDir(filepath.Dir(path)) {
		return exists, fmt.Errorf("%w: %q", ErrParentMissing, filepath.Dir(path))
	}
	if !exists {
		if _, statErr := os.Lstat(path); statErr == nil {
			return false, fmt.Errorf("%w: %q", ErrNotDirectory, path)
		}
	}
	return exists, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Owner is the ownership and permission bits of a directory.
type Owner struct {
	UID  uint32
	GID  uint32
	Mode uint32 // permission bits including setuid, setgid and sticky
}

// Stat returns the owner and permission bits of path, following symlinks.
func Stat(path string) (Owner, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Owner{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return Owner{
		UID:  st.Uid,
		GID:  st.Gid,
		Mode: uint32(st.Mode) & 0o7777,
	}, nil
}

// Permissions renders the mode as four octal digits, e.g. "2770".
func (o Owner) Permissions() string {
	return FormatMode(o.Mode)
}

// FormatMode renders permission bits as four octal digits.
func FormatMode(mode uint32) string {
	return fmt.Sprintf("%04o", mode&0o7777)
}

// Mkdir creates a single directory. The process umask applies.
func Mkdir(path string) error {
	if err := os.Mkdir(path, 0o777); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
