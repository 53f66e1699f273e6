// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package rep

import "syscall"

// control ignores listener options on platforms without them.
func (o *options) control(_, _ string, _ syscall.RawConn) error {
	return nil
}
