// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"code.hybscloud.com/kont"
)

// RecvBind receives a request and passes it to f.
// Fuses Perform(Recv{}) + Bind.
func RecvBind[B any](f func(*Message) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Recv{}), f)
}

// SendThen replies with body and then continues with next.
// Fuses Perform(Send{Body: body}) + Then.
func SendThen[B any](body []byte, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Send{Body: body}), next)
}

// Exchange is one request/reply exchange: receive a request, then send
// h's reply to it.
func Exchange(h Handler) kont.Eff[struct{}] {
	return RecvBind(func(m *Message) kont.Eff[struct{}] {
		return SendThen(h.Reply(m), kont.Pure(struct{}{}))
	})
}
