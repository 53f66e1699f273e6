// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

// Hooks for the external tests.

func (s *Socket) Hold()    { s.hold() }
func (s *Socket) Release() { s.release() }

// Worker returns the i-th worker of p.
func (p *Pool) Worker(i int) *Worker { return p.workers[i] }

// Inject delivers res to w's completion callback as if an operation had
// finished. w must have no operation in flight.
func (w *Worker) Inject(res Result) { w.complete(w.aio, res) }

// ContextID returns the serial of w's current context.
func (w *Worker) ContextID() Serial { return w.ctx.id }

// Listen binds the pool's socket without starting the workers.
func (p *Pool) Listen(url string) error { return p.sock.Listen(url) }

// CloseContext closes w's current context.
func (w *Worker) CloseContext() error { return w.ctx.Close() }
