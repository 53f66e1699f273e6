// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"fmt"
	"net"
	"os"
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/rs/zerolog"
)

// Pool is a fixed set of workers sharing one Socket. Its size bounds the
// number of exchanges in flight: a request beyond that waits in the
// transport until a worker finishes its reply.
//
// The pool owns the socket and closes it in Close.
type Pool struct {
	sock    *Socket
	handler Handler
	workers []*Worker
	rt      *Runtime
	policy  FailurePolicy
	fatal   func(error)
	log     zerolog.Logger

	mu      sync.Mutex
	started bool
	ready   bool
	closed  bool

	received atomix.Uint64
	replied  atomix.Uint64
	failures atomix.Uint64
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers  int
	Received uint64
	Replied  uint64
	Failures uint64
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPolicy sets how workers recover from failed operations.
// The default is Escalate.
func WithPolicy(fp FailurePolicy) PoolOption {
	return func(p *Pool) { p.policy = fp }
}

// WithFatal replaces the hook Escalate reports to. The default logs the
// error and exits the process with status 1.
func WithFatal(fn func(error)) PoolOption {
	return func(p *Pool) { p.fatal = fn }
}

// WithPoolLogger sets the pool's logger. The default is the socket's.
func WithPoolLogger(l zerolog.Logger) PoolOption {
	return func(p *Pool) { p.log = l }
}

// WithRuntime delivers the workers' completions on rt instead of the
// default runtime.
func WithRuntime(rt *Runtime) PoolOption {
	return func(p *Pool) { p.rt = rt }
}

// NewPool creates size workers on sock, each with its own Context and Aio,
// answering requests with h. Nothing is received until Start.
//
// Construction is all-or-nothing: on failure every context created so far
// is closed and a *ContextCreationError or *OperationSetupError is
// returned.
func NewPool(sock *Socket, size int, h Handler, opts ...PoolOption) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	if h == nil {
		h = StaticReply(nil)
	}
	p := &Pool{
		sock:    sock,
		handler: h,
		policy:  Escalate,
		log:     sock.log,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rt == nil {
		p.rt = DefaultRuntime()
	}
	if p.fatal == nil {
		p.fatal = func(err error) {
			p.log.Error().Err(err).Msg("fatal operation failure")
			os.Exit(1)
		}
	}

	p.workers = make([]*Worker, 0, size)
	for i := range size {
		c, err := sock.NewContext()
		if err != nil {
			p.closeContexts()
			return nil, &ContextCreationError{Index: i, Err: err}
		}
		w := &Worker{pool: p, index: i, ctx: c}
		a, err := p.rt.NewAio(w.complete)
		if err != nil {
			_ = c.Close()
			p.closeContexts()
			return nil, &OperationSetupError{Index: i, Err: err}
		}
		w.aio = a
		p.workers = append(p.workers, w)
	}
	return p, nil
}

// Start binds url and issues the first receive on every worker.
// Requests that arrive meanwhile stay queued: none is handed to a worker
// before all of them are waiting and the pool reports Ready.
func (p *Pool) Start(url string) error {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return ErrClosed
	case p.started:
		p.mu.Unlock()
		return ErrStarted
	}
	p.started = true
	p.mu.Unlock()

	p.sock.hold()
	defer p.sock.release()

	if err := p.sock.Listen(url); err != nil {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return err
	}
	for _, w := range p.workers {
		if err := w.begin(); err != nil {
			p.abortStart()
			return &OperationSetupError{Index: w.index, Err: err}
		}
	}

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	p.log.Info().Int("workers", len(p.workers)).Str("url", url).Msg("pool started")
	return nil
}

// Ready reports whether every worker has issued its first receive.
func (p *Pool) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Addr returns the bound address, or nil before Start.
func (p *Pool) Addr() net.Addr { return p.sock.Addr() }

// Stats returns the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:  len(p.workers),
		Received: p.received.Load(),
		Replied:  p.replied.Load(),
		Failures: p.failures.Load(),
	}
}

// Close closes the socket. Workers see ErrClosed on their next operation
// and stop without consulting the failure policy.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	p.ready = false
	p.mu.Unlock()
	return p.sock.Close()
}

// abortStart undoes a partial Start. The receives already issued end
// with ErrClosed, which the workers take as a shutdown.
func (p *Pool) abortStart() {
	p.mu.Lock()
	p.started = false
	p.closed = true
	p.mu.Unlock()
	_ = p.sock.Close()
	p.log.Error().Msg("pool start aborted")
}

func (p *Pool) closing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) count(kind OpKind) {
	switch kind {
	case OpRecv:
		p.received.Add(1)
	case OpSend:
		p.replied.Add(1)
	}
}

func (p *Pool) escalate(worker int, err error) {
	p.fatal(fmt.Errorf("rep: worker %d: %w", worker, err))
}

func (p *Pool) closeContexts() {
	for _, w := range p.workers {
		_ = w.ctx.Close()
	}
}
