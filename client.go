// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
)

// Client is the requester end of the pattern over one connection.
// Requests are strictly alternating: Request waits for the reply before
// another request may be sent. It is safe for concurrent use; callers
// are serialized.
type Client struct {
	conn net.Conn
	br   *bufio.Reader
	log  zerolog.Logger
	max  int

	mu     sync.Mutex
	nextID uint32
	err    error // sticky; the stream is unusable after an I/O error
}

// Dial connects to a responder at url and performs the SP handshake.
// The socket options that apply to a requester are the logger, the
// maximum message size, the handshake timeout and dial retry.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	network, addr, err := parseURL(url)
	if err != nil {
		return nil, err
	}
	conn, err := dial(ctx, network, addr, o)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:   conn,
		br:     bufio.NewReader(conn),
		log:    o.log,
		max:    o.maxMsgSize,
		nextID: rand.Uint32(),
	}
	if err := c.handshake(o.handshakeTimeout); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func dial(ctx context.Context, network, addr string, o options) (net.Conn, error) {
	var d net.Dialer
	var bo iox.Backoff
	for {
		conn, err := d.DialContext(ctx, network, addr)
		if err == nil || !o.dialRetry || ctx.Err() != nil {
			return conn, err
		}
		o.log.Debug().Err(err).Str("addr", addr).Msg("dial retry")
		bo.Wait()
	}
}

func (c *Client) handshake(timeout time.Duration) error {
	if timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	if err := writeHandshake(c.conn, protoReq); err != nil {
		return err
	}
	peer, err := readHandshake(c.br)
	if err != nil {
		return err
	}
	if peer != protoRep {
		return fmt.Errorf("%w: peer protocol 0x%x is not rep", ErrProtocol, peer)
	}
	return c.conn.SetDeadline(time.Time{})
}

// Request sends body and waits for its reply. Replies carrying another
// request id are stale and skipped. Cancelling ctx aborts the wait and
// leaves the client unusable.
func (c *Client) Request(ctx context.Context, body []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}

	id := c.nextID | requestIDBit
	c.nextID++

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, c.broken(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], id)
	if err := writeFrame(c.conn, hdr[:], body); err != nil {
		return nil, c.broken(contextErr(ctx, err))
	}
	for {
		msg, err := readFrame(c.br, c.max)
		if err != nil {
			return nil, c.broken(contextErr(ctx, err))
		}
		if len(msg) < len(hdr) || binary.BigEndian.Uint32(msg) != id {
			c.log.Debug().Int("len", len(msg)).Msg("discarding stale reply")
			continue
		}
		return msg[len(hdr):], nil
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.err == nil {
		c.err = ErrClosed
	}
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) broken(err error) error {
	c.err = err
	_ = c.conn.Close()
	return err
}

// contextErr prefers the context's error over the deadline error it caused.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return context.DeadlineExceeded
	}
	return err
}
