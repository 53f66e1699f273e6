// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"code.hybscloud.com/kont"
)

// Recv is the effect operation for receiving a request.
// Perform(Recv{}) suspends until a request arrives on the worker's context.
type Recv struct {
	kont.Phantom[*Message]
}

// Issue starts the receive on c. The suspension is resumed with the
// received *Message when a completes.
func (Recv) Issue(c *Context, a *Aio) error {
	return c.Recv(a)
}

// Send is the effect operation for replying to the request received last.
// Perform(Send{Body: b}) suspends until the reply has been handed off.
type Send struct {
	kont.Phantom[struct{}]
	Body []byte
}

// Issue starts the send on c. The suspension is resumed with struct{}{}
// when a completes.
func (s Send) Issue(c *Context, a *Aio) error {
	return c.Send(a, s.Body)
}

// issuer is implemented by every operation a worker protocol may perform.
type issuer interface {
	Issue(c *Context, a *Aio) error
}
