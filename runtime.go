// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"
)

// Runtime delivers operation completions. Completed aios are appended to a
// FIFO and a fixed set of dispatcher goroutines pops them and invokes
// their callbacks. No goroutine is created per operation.
//
// Callbacks of one Aio never overlap, since an Aio has at most one
// operation in flight. Callbacks of different aios may run concurrently.
type Runtime struct {
	mu      sync.Mutex
	cond    sync.Cond
	pending *queue.Queue // *Aio
	closed  bool
	wg      sync.WaitGroup
}

// NewRuntime starts a runtime with n dispatcher goroutines.
// n <= 0 uses runtime.GOMAXPROCS(0).
func NewRuntime(n int) *Runtime {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	rt := &Runtime{pending: queue.New()}
	rt.cond.L = &rt.mu
	rt.wg.Add(n)
	for range n {
		go rt.dispatch()
	}
	return rt
}

var (
	defaultRuntimeOnce sync.Once
	defaultRuntime     *Runtime
)

// DefaultRuntime returns the process-wide runtime used by NewAio.
// It is started on first use and never closed.
func DefaultRuntime() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime(0)
	})
	return defaultRuntime
}

// NewAio creates an Aio whose completions are delivered by rt.
func (rt *Runtime) NewAio(cb Callback) (*Aio, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	return &Aio{rt: rt, cb: cb, id: nextAioSerial()}, nil
}

// Close stops the dispatchers after the completions already queued
// have been delivered. Completions posted afterwards are dropped.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	rt.cond.Broadcast()
	rt.mu.Unlock()
	rt.wg.Wait()
}

// post queues a completed aio for dispatch.
func (rt *Runtime) post(a *Aio) {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.pending.Add(a)
	rt.mu.Unlock()
	rt.cond.Signal()
}

func (rt *Runtime) dispatch() {
	defer rt.wg.Done()
	for {
		rt.mu.Lock()
		for rt.pending.Length() == 0 && !rt.closed {
			rt.cond.Wait()
		}
		if rt.pending.Length() == 0 {
			rt.mu.Unlock()
			return
		}
		a := rt.pending.Remove().(*Aio)
		rt.mu.Unlock()
		a.fire()
	}
}
