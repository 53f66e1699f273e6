// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"sync"
	"time"
)

// OpKind identifies the operation an Aio completed.
type OpKind uint8

const (
	OpRecv OpKind = iota + 1
	OpSend
	OpSleep
)

func (k OpKind) String() string {
	switch k {
	case OpRecv:
		return "recv"
	case OpSend:
		return "send"
	case OpSleep:
		return "sleep"
	default:
		return "none"
	}
}

// Result is the outcome of one asynchronous operation.
// Msg is set only for a successful receive.
type Result struct {
	Kind OpKind
	Msg  *Message
	Err  error
}

// Callback is invoked by the runtime when an operation finishes,
// successfully or not. It may issue the next operation on the same Aio.
type Callback func(a *Aio, res Result)

// Aio is a reusable handle for one non-blocking operation at a time.
// Issuing an operation returns immediately; the outcome is delivered
// to the callback exactly once, on a runtime dispatcher goroutine.
type Aio struct {
	rt *Runtime
	cb Callback
	id Serial

	mu   sync.Mutex
	busy bool
	kind OpKind
	res  Result
}

// NewAio creates an Aio on the default runtime.
func NewAio(cb Callback) (*Aio, error) {
	return DefaultRuntime().NewAio(cb)
}

// ID returns the serial assigned to a.
func (a *Aio) ID() Serial { return a.id }

// Busy reports whether an operation is in flight or its callback has
// not started yet.
func (a *Aio) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy
}

// Sleep completes with OpSleep after d.
func (a *Aio) Sleep(d time.Duration) error {
	if err := a.begin(OpSleep); err != nil {
		return err
	}
	time.AfterFunc(d, func() {
		a.finish(Result{Kind: OpSleep})
	})
	return nil
}

// begin marks a busy with an operation of kind.
func (a *Aio) begin(kind OpKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return ErrBusy
	}
	a.busy = true
	a.kind = kind
	a.res = Result{}
	return nil
}

// abort undoes begin when an operation could not be issued.
func (a *Aio) abort() {
	a.mu.Lock()
	a.busy = false
	a.kind = 0
	a.mu.Unlock()
}

// finish records the outcome and hands a to the runtime.
func (a *Aio) finish(res Result) {
	a.mu.Lock()
	res.Kind = a.kind
	a.res = res
	a.mu.Unlock()
	a.rt.post(a)
}

// fire runs on a dispatcher. The aio is released before the callback so
// the callback can issue the next operation.
func (a *Aio) fire() {
	a.mu.Lock()
	res := a.res
	a.busy = false
	a.kind = 0
	a.mu.Unlock()
	a.cb(a, res)
}
