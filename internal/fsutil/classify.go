package fsutil

import (
	"errors"
	"io/fs"
)

// IsNoSpace reports whether err was caused by a full disk or exhausted quota.
func IsNoSpace(err error) bool {
	if err == nil {
		return false
	}
	for _, errno := range noSpaceErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is an I/O failure worth retrying: interrupted calls,
// temporarily unavailable resources, and sharing violations.
// Disk full, read-only filesystems, and permission errors are never transient.
func IsTransient(err error) bool {
	if err == nil || IsNoSpace(err) || IsReadOnly(err) {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return false
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether err was caused by a read-only filesystem.
func IsReadOnly(err error) bool {
	if err == nil {
		return false
	}
	for _, errno := range readOnlyErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
