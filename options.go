// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxMsgSize bounds a single request, as nng's default recvmaxsz.
	DefaultMaxMsgSize = 1 << 20
	// DefaultHandshakeTimeout bounds the SP handshake of a new pipe.
	DefaultHandshakeTimeout = 5 * time.Second
)

// Option configures a Socket.
type Option func(*options)

type options struct {
	log              zerolog.Logger
	maxMsgSize       int
	handshakeTimeout time.Duration
	reusePort        bool
	recvBuf          int
	sendBuf          int
	dialRetry        bool
}

func defaultOptions() options {
	return options{
		log:              zerolog.Nop(),
		maxMsgSize:       DefaultMaxMsgSize,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
}

// WithLogger sets the logger for socket and pipe events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMaxMsgSize sets the largest accepted request; n <= 0 disables the limit.
func WithMaxMsgSize(n int) Option {
	return func(o *options) { o.maxMsgSize = n }
}

// WithDialRetry makes Dial keep reconnecting with backoff until the
// responder accepts or the context ends, so a requester may start first.
func WithDialRetry(on bool) Option {
	return func(o *options) { o.dialRetry = on }
}

// WithHandshakeTimeout sets how long a new pipe may take to handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) { o.handshakeTimeout = d }
}

// WithReusePort sets SO_REUSEPORT on the listener where supported.
func WithReusePort(on bool) Option {
	return func(o *options) { o.reusePort = on }
}

// WithBufferSizes sets SO_RCVBUF and SO_SNDBUF on the listener where
// supported. Zero leaves the system default.
func WithBufferSizes(recv, send int) Option {
	return func(o *options) {
		o.recvBuf = recv
		o.sendBuf = send
	}
}
