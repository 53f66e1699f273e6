// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
)

// SP protocol numbers exchanged in the connection handshake.
const (
	protoReq = 0x30
	protoRep = 0x31
)

const (
	handshakeSize = 8
	lengthSize    = 8
	// maxHops bounds the backtrace of a request, as nng's default TTL.
	maxHops = 8
	// requestIDBit marks the last backtrace word, the request id.
	requestIDBit = 0x80000000
)

// writeHandshake sends the 8-byte SP header announcing proto.
func writeHandshake(w io.Writer, proto uint16) error {
	var b [handshakeSize]byte
	b[1], b[2] = 'S', 'P'
	binary.BigEndian.PutUint16(b[4:6], proto)
	_, err := w.Write(b[:])
	return err
}

// readHandshake reads the peer's SP header and returns its protocol number.
func readHandshake(r io.Reader) (uint16, error) {
	var b [handshakeSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	if b[0] != 0 || b[1] != 'S' || b[2] != 'P' || b[3] != 0 || b[6] != 0 || b[7] != 0 {
		return 0, fmt.Errorf("%w: bad handshake % x", ErrProtocol, b)
	}
	return binary.BigEndian.Uint16(b[4:6]), nil
}

// writeFrame writes header and body as one length-prefixed message.
// A single vectored write keeps the frame contiguous on the wire.
func writeFrame(w io.Writer, header, body []byte) error {
	var l [lengthSize]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(header)+len(body)))
	bufs := net.Buffers{l[:], header, body}
	_, err := bufs.WriteTo(w)
	return err
}

// readFrame reads one length-prefixed message of at most limit bytes.
// limit <= 0 disables the check; the buffer then grows with the bytes
// actually received, never with the announced length.
func readFrame(r io.Reader, limit int) ([]byte, error) {
	var l [lengthSize]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(l[:])
	if n > math.MaxInt || (limit > 0 && n > uint64(limit)) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, n)
	}
	if limit <= 0 {
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return buf.Bytes(), nil
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// splitBacktrace separates the request backtrace from the body. The
// backtrace ends with the first word that has the high bit set.
func splitBacktrace(msg []byte) (header, body []byte, err error) {
	for hops := 0; hops < maxHops; hops++ {
		end := (hops + 1) * 4
		if len(msg) < end {
			return nil, nil, fmt.Errorf("%w: truncated backtrace", ErrProtocol)
		}
		if binary.BigEndian.Uint32(msg[end-4:end])&requestIDBit != 0 {
			return msg[:end], msg[end:], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: backtrace exceeds %d hops", ErrProtocol, maxHops)
}
