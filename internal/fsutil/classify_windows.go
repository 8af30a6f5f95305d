//go:build windows

package fsutil

import "golang.org/x/sys/windows"

var (
	noSpaceErrnos   = []error{windows.ERROR_DISK_FULL, windows.ERROR_HANDLE_DISK_FULL}
	readOnlyErrnos  = []error{windows.ERROR_WRITE_PROTECT}
	transientErrnos = []error{windows.ERROR_SHARING_VIOLATION, windows.ERROR_LOCK_VIOLATION, windows.ERROR_BUSY}
)
