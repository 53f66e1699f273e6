// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"errors"
	"fmt"

	"code.hybscloud.com/kont"
)

// State is the phase of a worker's exchange cycle. It names the
// operation the worker has in flight.
type State uint8

const (
	// AwaitingRequest has a receive in flight. It is the initial state.
	AwaitingRequest State = iota
	// SendingReply has a send in flight.
	SendingReply
)

func (s State) String() string {
	switch s {
	case AwaitingRequest:
		return "awaiting-request"
	case SendingReply:
		return "sending-reply"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Transition returns the state that follows a successful completion of
// kind in state s. Any pairing other than a receive finishing
// AwaitingRequest or a send finishing SendingReply is ErrState.
func Transition(s State, kind OpKind) (State, error) {
	switch {
	case s == AwaitingRequest && kind == OpRecv:
		return SendingReply, nil
	case s == SendingReply && kind == OpSend:
		return AwaitingRequest, nil
	}
	return s, fmt.Errorf("%w: %s completed while %s", ErrState, kind, s)
}

// Handler produces the reply for a request.
type Handler interface {
	Reply(m *Message) []byte
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(m *Message) []byte

func (f HandlerFunc) Reply(m *Message) []byte { return f(m) }

// StaticReply answers every request with b.
func StaticReply(b []byte) Handler {
	return HandlerFunc(func(*Message) []byte { return b })
}

// Worker pairs one Context with one Aio and runs request/reply exchanges
// on them forever. Each completion advances the exchange protocol by one
// effect and issues the next operation before returning, so a running
// worker always has exactly one operation in flight.
type Worker struct {
	pool  *Pool
	index int
	ctx   *Context
	aio   *Aio

	state State
	susp  *kont.Suspension[struct{}]
}

// Index returns the worker's position in its pool.
func (w *Worker) Index() int { return w.index }

// State returns the phase of the current exchange. It is only meaningful
// from the worker's own callback or while the pool is quiescent.
func (w *Worker) State() State { return w.state }

// begin steps a fresh exchange to its first suspension and issues it.
func (w *Worker) begin() error {
	_, susp := Step(Exchange(w.pool.handler))
	w.state = AwaitingRequest
	w.susp = susp
	return Issue(w.ctx, w.aio, susp)
}

// complete is the worker's completion callback.
func (w *Worker) complete(_ *Aio, res Result) {
	if res.Kind == OpSleep {
		panic("rep: worker never sleeps")
	}
	if res.Err != nil {
		w.fail(res)
		return
	}
	next, err := Transition(w.state, res.Kind)
	if err != nil {
		panic(fmt.Sprintf("rep: worker %d: %v", w.index, err))
	}
	w.pool.log.Debug().Int("worker", w.index).Stringer("op", res.Kind).Msg("completed")
	w.pool.count(res.Kind)

	_, susp := Resume(w.susp, res)
	if susp == nil {
		err = w.begin()
	} else {
		w.state = next
		w.susp = susp
		err = Issue(w.ctx, w.aio, susp)
	}
	if err != nil {
		w.fail(Result{Kind: res.Kind, Err: err})
	}
}

// fail applies the pool's failure policy to a failed operation.
func (w *Worker) fail(res Result) {
	p := w.pool
	if p.closing() {
		p.log.Debug().Int("worker", w.index).Err(res.Err).Msg("worker stopped")
		return
	}
	p.failures.Add(1)

	d := p.policy.Decide(w.index, res)
	if errors.Is(res.Err, ErrClosed) {
		// The socket is gone; neither a new receive nor a new context can help.
		d = Escalate
	}
	p.log.Warn().Int("worker", w.index).Stringer("op", res.Kind).
		Stringer("state", w.state).Stringer("decision", d).Err(res.Err).Msg("operation failed")

	var err error
	switch d {
	case Retry:
		err = w.begin()
	case Recreate:
		err = w.recreate()
	default:
		err = res.Err
	}
	if err != nil {
		p.escalate(w.index, err)
	}
}

// recreate replaces the worker's context and starts a new exchange on it.
func (w *Worker) recreate() error {
	_ = w.ctx.Close()
	c, err := w.pool.sock.NewContext()
	if err != nil {
		return &ContextCreationError{Index: w.index, Err: err}
	}
	w.ctx = c
	return w.begin()
}
