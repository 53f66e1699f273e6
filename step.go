// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"code.hybscloud.com/kont"
)

// Step evaluates a worker protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Eff[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(kont.Reify(protocol))
}

// Issue starts the operation the suspension is waiting on, using c and a.
// The suspension is left unconsumed: the completion callback resumes it
// with the operation's value.
//
// Issue never blocks. Issue-time errors (ErrBusy, ErrClosed) are returned
// and the suspension may be issued again.
func Issue[R any](c *Context, a *Aio, susp *kont.Suspension[R]) error {
	op, ok := susp.Op().(issuer)
	if !ok {
		panic("rep: unhandled effect in Issue")
	}
	return op.Issue(c, a)
}

// Resume feeds the outcome of a completed operation to the suspension.
// Returns the next suspension, or nil and the result when the protocol
// has finished.
func Resume[R any](susp *kont.Suspension[R], res Result) (R, *kont.Suspension[R]) {
	switch res.Kind {
	case OpRecv:
		return susp.Resume(res.Msg)
	case OpSend:
		return susp.Resume(struct{}{})
	default:
		panic("rep: unexpected completion " + res.Kind.String() + " in Resume")
	}
}
