// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"context"
	"errors"
	"net"
	"sync"

	"code.hybscloud.com/iox"
	"github.com/eapache/queue"
	"github.com/rs/zerolog"
)

// Socket is the responder end of the request/reply pattern. It listens on
// one address, accepts any number of requester pipes, and hands their
// requests to contexts in arrival order. A Socket is safe for concurrent
// use by many contexts.
type Socket struct {
	opts options
	log  zerolog.Logger

	mu      sync.Mutex
	ln      net.Listener
	pipes   map[Serial]*pipe
	ready   *queue.Queue // *pipe that may have requests in its inbox
	waiters *queue.Queue // *Context with a receive outstanding
	held    bool
	closed  bool

	wg sync.WaitGroup
}

// NewSocket creates a responder socket. It does not listen until Listen.
func NewSocket(opts ...Option) *Socket {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Socket{
		opts:    o,
		log:     o.log,
		pipes:   make(map[Serial]*pipe),
		ready:   queue.New(),
		waiters: queue.New(),
	}
}

// Listen binds url and starts accepting requester pipes. It fails with
// a *BindError if url is malformed, the address is unavailable, or the
// socket is already listening or closed.
func (s *Socket) Listen(url string) error {
	network, addr, err := parseURL(url)
	if err != nil {
		return &BindError{URL: url, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &BindError{URL: url, Err: ErrClosed}
	}
	if s.ln != nil {
		return &BindError{URL: url, Err: ErrListening}
	}
	lc := net.ListenConfig{Control: s.opts.control}
	ln, err := lc.Listen(context.Background(), network, addr)
	if err != nil {
		return &BindError{URL: url, Err: err}
	}
	s.ln = ln
	s.wg.Add(1)
	go s.acceptLoop(ln)
	s.log.Info().Str("url", url).Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Socket) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// NewContext creates a context bound to s.
func (s *Socket) NewContext() (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return &Context{sock: s, id: nextContextSerial()}, nil
}

// Close stops listening, closes every pipe, and completes outstanding
// receives with ErrClosed. It waits for the transport goroutines to exit.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	ln := s.ln
	pipes := make([]*pipe, 0, len(s.pipes))
	for _, p := range s.pipes {
		pipes = append(pipes, p)
	}
	for s.waiters.Length() > 0 {
		c := s.waiters.Remove().(*Context)
		if c.waiting {
			c.waiting = false
			c.complete(Result{Err: ErrClosed})
		}
	}
	s.ready = queue.New()
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, p := range pipes {
		p.close()
	}
	s.wg.Wait()
	s.log.Info().Msg("socket closed")
	return nil
}

func (s *Socket) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	var bo iox.Backoff
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn().Err(err).Msg("accept")
			bo.Wait()
			continue
		}
		bo.Reset()
		s.addPipe(conn)
	}
}

func (s *Socket) addPipe(conn net.Conn) {
	p := newPipe(s, conn)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.pipes[p.id] = p
	s.wg.Add(2)
	s.mu.Unlock()
	go p.readLoop()
	go p.writeLoop()
}

func (s *Socket) removePipe(p *pipe) {
	s.mu.Lock()
	delete(s.pipes, p.id)
	s.mu.Unlock()
}

// recv registers c as waiting for a request.
func (s *Socket) recv(c *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		c.complete(Result{Err: ErrClosed})
		return
	}
	c.waiting = true
	s.waiters.Add(c)
	s.matchLocked()
}

// deliver records that p has queued a request and matches it with a
// waiting context if one exists.
func (s *Socket) deliver(p *pipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !p.queued {
		p.queued = true
		s.ready.Add(p)
	}
	s.matchLocked()
}

// matchLocked pairs waiting contexts with queued requests, oldest first.
func (s *Socket) matchLocked() {
	if s.held || s.closed {
		return
	}
	for s.waiters.Length() > 0 {
		c := s.waiters.Peek().(*Context)
		if !c.waiting {
			s.waiters.Remove()
			continue
		}
		req := s.takeLocked()
		if req == nil {
			return
		}
		s.waiters.Remove()
		c.waiting = false
		c.deliver(req)
	}
}

// takeLocked dequeues one request, rotating through ready pipes so a
// busy peer cannot starve the others. Requests of closed pipes are dropped.
// The caller's hold of s.mu makes it the single consumer of each inbox.
func (s *Socket) takeLocked() *request {
	for s.ready.Length() > 0 {
		p := s.ready.Remove().(*pipe)
		req, err := p.inbox.Dequeue()
		if err != nil || p.isClosed() {
			p.queued = false
			continue
		}
		s.ready.Add(p)
		return req
	}
	return nil
}

// hold stops matching requests with contexts until release.
func (s *Socket) hold() {
	s.mu.Lock()
	s.held = true
	s.mu.Unlock()
}

func (s *Socket) release() {
	s.mu.Lock()
	s.held = false
	s.matchLocked()
	s.mu.Unlock()
}
