// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux || darwin || freebsd || netbsd || openbsd

package rep

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control applies the configured options to the listening socket
// before bind. Accepted connections inherit the buffer sizes.
func (o *options) control(_, _ string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		if o.reusePort {
			if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); serr != nil {
				return
			}
		}
		if o.recvBuf > 0 {
			if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, o.recvBuf); serr != nil {
				return
			}
		}
		if o.sendBuf > 0 {
			serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, o.sendBuf)
		}
	})
	if err != nil {
		return err
	}
	return serr
}
