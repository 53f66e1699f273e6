// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import "sync"

// Message is a received request.
type Message struct {
	Body []byte
	// Pipe identifies the requester connection the request arrived on.
	Pipe Serial
}

// Context conducts one request/reply exchange at a time over a shared
// Socket. A successful Recv saves the request's backtrace; the following
// Send routes the reply back along it.
//
// A Context has at most one operation outstanding. It must not be driven
// by two owners concurrently.
type Context struct {
	sock *Socket
	id   Serial

	mu     sync.Mutex
	aio    *Aio
	saved  *request
	closed bool

	waiting bool // in sock.waiters, guarded by sock.mu
}

// ID returns the serial assigned to c.
func (c *Context) ID() Serial { return c.id }

// Recv issues a receive on a. The callback gets a Result whose Msg is the
// next request not taken by another context. A request saved by an
// earlier Recv and not yet answered is abandoned.
func (c *Context) Recv(a *Aio) error {
	if err := c.start(a, OpRecv); err != nil {
		return err
	}
	c.sock.recv(c)
	return nil
}

// Send issues the reply to the request received last. Without a saved
// request the operation completes with ErrState. If the requester has
// gone away the reply is discarded and the operation completes without
// error.
func (c *Context) Send(a *Aio, body []byte) error {
	if err := c.start(a, OpSend); err != nil {
		return err
	}
	c.mu.Lock()
	req := c.saved
	c.saved = nil
	c.mu.Unlock()

	if req == nil {
		c.complete(Result{Err: ErrState})
		return nil
	}
	if !req.pipe.send(&outbound{header: req.header, body: body, ctx: c}) {
		c.complete(Result{})
	}
	return nil
}

// Close cancels an outstanding receive with ErrClosed and releases c.
// A reply already handed to a pipe is still written.
func (c *Context) Close() error {
	c.sock.mu.Lock()
	c.waiting = false
	c.sock.mu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	a := c.aio
	c.aio = nil
	c.saved = nil
	c.mu.Unlock()

	if a != nil {
		a.finish(Result{Err: ErrClosed})
	}
	return nil
}

func (c *Context) start(a *Aio, kind OpKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.aio != nil {
		return ErrBusy
	}
	if err := a.begin(kind); err != nil {
		return err
	}
	c.aio = a
	if kind == OpRecv {
		c.saved = nil
	}
	return nil
}

// complete finishes the outstanding operation, if any.
func (c *Context) complete(res Result) {
	c.mu.Lock()
	a := c.aio
	c.aio = nil
	c.mu.Unlock()
	if a != nil {
		a.finish(res)
	}
}

// deliver completes the outstanding receive with req.
// The socket calls it with sock.mu held.
func (c *Context) deliver(req *request) {
	c.mu.Lock()
	a := c.aio
	c.aio = nil
	if a != nil {
		c.saved = req
	}
	c.mu.Unlock()
	if a != nil {
		a.finish(Result{Msg: &Message{Body: req.body, Pipe: req.pipe.id}})
	}
}
