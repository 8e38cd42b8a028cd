//go:build !unix

package quic

import (
	"errors"
	"os"
	"syscall"
)

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

func isPermissionDenied(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
