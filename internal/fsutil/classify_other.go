//go:build !unix && !windows

package fsutil

var (
	noSpaceErrnos   []error
	readOnlyErrnos  []error
	transientErrnos []error
)
