//go:build unix

package fsutil

import "golang.org/x/sys/unix"

var (
	noSpaceErrnos   = []error{unix.ENOSPC, unix.EDQUOT}
	readOnlyErrnos  = []error{unix.EROFS}
	transientErrnos = []error{unix.EINTR, unix.EAGAIN, unix.EBUSY, unix.ETIMEDOUT}
)
