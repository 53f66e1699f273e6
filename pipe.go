// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"github.com/eapache/queue"
	"github.com/rs/zerolog"
)

// pipeInboxCapacity bounds the requests a pipe may queue ahead of the
// contexts. A requester that runs further ahead stays unread in the
// connection.
const pipeInboxCapacity = 16

// request is a received request awaiting a context, then a reply.
type request struct {
	pipe   *pipe
	header []byte // backtrace, echoed in the reply
	body   []byte
}

// outbound is a reply queued on a pipe for its writer.
type outbound struct {
	header []byte
	body   []byte
	ctx    *Context
}

// pipe is one requester connection. The reader goroutine is the only
// producer of inbox; consumers dequeue only while holding the socket
// mutex, which serializes them into a single consumer.
type pipe struct {
	id   Serial
	sock *Socket
	conn net.Conn
	log  zerolog.Logger

	inbox  lfq.SPSC[*request]
	queued bool // in sock.ready, guarded by sock.mu

	mu        sync.Mutex
	cond      sync.Cond
	sendq     *queue.Queue // *outbound
	closed    bool
	closeOnce sync.Once
}

func newPipe(s *Socket, conn net.Conn) *pipe {
	p := &pipe{
		id:    nextPipeSerial(),
		sock:  s,
		conn:  conn,
		sendq: queue.New(),
	}
	p.log = s.log.With().Uint32("pipe", p.id).Str("remote", conn.RemoteAddr().String()).Logger()
	p.inbox.Init(pipeInboxCapacity)
	p.cond.L = &p.mu
	return p
}

func (p *pipe) handshake() error {
	if d := p.sock.opts.handshakeTimeout; d > 0 {
		if err := p.conn.SetDeadline(time.Now().Add(d)); err != nil {
			return err
		}
	}
	if err := writeHandshake(p.conn, protoRep); err != nil {
		return err
	}
	peer, err := readHandshake(p.conn)
	if err != nil {
		return err
	}
	if peer != protoReq {
		return fmt.Errorf("%w: peer protocol 0x%x is not req", ErrProtocol, peer)
	}
	return p.conn.SetDeadline(time.Time{})
}

func (p *pipe) readLoop() {
	defer p.sock.wg.Done()
	defer p.close()

	if err := p.handshake(); err != nil {
		p.log.Debug().Err(err).Msg("handshake")
		return
	}
	p.log.Debug().Msg("pipe open")

	br := bufio.NewReader(p.conn)
	for {
		msg, err := readFrame(br, p.sock.opts.maxMsgSize)
		if err != nil {
			if !errors.Is(err, io.EOF) && !p.isClosed() {
				p.log.Debug().Err(err).Msg("read")
			}
			return
		}
		header, body, err := splitBacktrace(msg)
		if err != nil {
			p.log.Debug().Err(err).Msg("dropping request")
			continue
		}
		if !p.push(&request{pipe: p, header: header, body: body}) {
			return
		}
		p.sock.deliver(p)
	}
}

// push waits for room in the inbox. While it waits the connection is not
// read, so further requests queue in the transport.
func (p *pipe) push(req *request) bool {
	var bo iox.Backoff
	for {
		err := p.inbox.Enqueue(&req)
		if err == nil {
			return true
		}
		if !iox.IsWouldBlock(err) || p.isClosed() {
			return false
		}
		bo.Wait()
	}
}

// send queues a reply for the writer. It reports false if the pipe has
// closed, in which case the reply is discarded.
func (p *pipe) send(ob *outbound) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.sendq.Add(ob)
	p.cond.Signal()
	return true
}

func (p *pipe) writeLoop() {
	defer p.sock.wg.Done()
	for {
		p.mu.Lock()
		for p.sendq.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			rest := make([]*outbound, 0, p.sendq.Length())
			for p.sendq.Length() > 0 {
				rest = append(rest, p.sendq.Remove().(*outbound))
			}
			p.mu.Unlock()
			// The requester is gone; its replies are discarded.
			for _, ob := range rest {
				ob.ctx.complete(Result{})
			}
			return
		}
		ob := p.sendq.Remove().(*outbound)
		p.mu.Unlock()

		if err := writeFrame(p.conn, ob.header, ob.body); err != nil {
			p.log.Debug().Err(err).Msg("write")
			p.close()
			ob.ctx.complete(Result{Err: fmt.Errorf("rep: write to pipe %d: %w", p.id, err)})
			continue
		}
		ob.ctx.complete(Result{})
	}
}

func (p *pipe) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pipe) close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()
		_ = p.conn.Close()
		p.sock.removePipe(p)
		p.log.Debug().Msg("pipe closed")
	})
}
