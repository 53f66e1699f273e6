// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep_test

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"code.hybscloud.com/rep"
	"github.com/stretchr/testify/require"
)

// rawPeer is a hand-driven req0 connection for wire-level checks.
type rawPeer struct {
	t    testing.TB
	conn net.Conn
}

func dialRaw(t testing.TB, addr net.Addr, proto byte) *rawPeer {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), testTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(testTimeout)))
	_, err = conn.Write([]byte{0, 'S', 'P', 0, 0, proto, 0, 0})
	require.NoError(t, err)
	return &rawPeer{t: t, conn: conn}
}

func (p *rawPeer) readHandshake() []byte {
	b := make([]byte, 8)
	_, err := io.ReadFull(p.conn, b)
	require.NoError(p.t, err)
	return b
}

func (p *rawPeer) send(msg []byte) {
	frame := binary.BigEndian.AppendUint64(nil, uint64(len(msg)))
	_, err := p.conn.Write(append(frame, msg...))
	require.NoError(p.t, err)
}

func (p *rawPeer) recv() []byte {
	var l [8]byte
	_, err := io.ReadFull(p.conn, l[:])
	require.NoError(p.t, err)
	msg := make([]byte, binary.BigEndian.Uint64(l[:]))
	_, err = io.ReadFull(p.conn, msg)
	require.NoError(p.t, err)
	return msg
}

func listen(t testing.TB, opts ...rep.Option) *rep.Socket {
	t.Helper()
	sock := rep.NewSocket(opts...)
	require.NoError(t, sock.Listen(loopback))
	t.Cleanup(func() { _ = sock.Close() })
	return sock
}

func newContextAio(t testing.TB, sock *rep.Socket) (*rep.Context, *rep.Aio, recorder) {
	t.Helper()
	c, err := sock.NewContext()
	require.NoError(t, err)
	rec := make(recorder, 4)
	a, err := rep.NewAio(rec.callback)
	require.NoError(t, err)
	return c, a, rec
}

func TestListenErrors(t *testing.T) {
	sock := rep.NewSocket()

	var be *rep.BindError
	err := sock.Listen("udp://127.0.0.1:0")
	require.ErrorAs(t, err, &be)
	require.ErrorIs(t, err, rep.ErrAddress)
	require.Equal(t, "udp://127.0.0.1:0", be.URL)

	require.NoError(t, sock.Listen(loopback))
	require.ErrorIs(t, sock.Listen(loopback), rep.ErrListening)

	// A second socket on the same port fails to bind.
	other := rep.NewSocket()
	err = other.Listen("tcp://" + sock.Addr().String())
	require.ErrorAs(t, err, &be)

	require.NoError(t, sock.Close())
	require.ErrorIs(t, sock.Close(), rep.ErrClosed)
	require.ErrorIs(t, sock.Listen(loopback), rep.ErrClosed)
	_, err = sock.NewContext()
	require.ErrorIs(t, err, rep.ErrClosed)
}

func TestContextRecvSend(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)

	require.NoError(t, c.Recv(a))
	require.ErrorIs(t, c.Recv(a), rep.ErrBusy)

	peer := dialRaw(t, sock.Addr(), 0x30)
	require.Equal(t, []byte{0, 'S', 'P', 0, 0, 0x31, 0, 0}, peer.readHandshake())

	// One device hop in front of the request id.
	header := append(binary.BigEndian.AppendUint32(nil, 7), 0x80, 0, 0, 1)
	peer.send(append(header, "ping"...))

	res := rec.next(t)
	require.Equal(t, rep.OpRecv, res.Kind)
	require.NoError(t, res.Err)
	require.Equal(t, "ping", string(res.Msg.Body))

	require.NoError(t, c.Send(a, []byte("pong")))
	res = rec.next(t)
	require.Equal(t, rep.OpSend, res.Kind)
	require.NoError(t, res.Err)

	require.Equal(t, append(header, "pong"...), peer.recv())
}

func TestContextSendWithoutRequest(t *testing.T) {
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)

	require.NoError(t, c.Send(a, []byte("x")))
	res := rec.next(t)
	require.Equal(t, rep.OpSend, res.Kind)
	require.ErrorIs(t, res.Err, rep.ErrState)
}

func TestContextClose(t *testing.T) {
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)

	require.NoError(t, c.Recv(a))
	require.NoError(t, c.Close())
	res := rec.next(t)
	require.Equal(t, rep.OpRecv, res.Kind)
	require.ErrorIs(t, res.Err, rep.ErrClosed)

	require.ErrorIs(t, c.Close(), rep.ErrClosed)
	require.ErrorIs(t, c.Recv(a), rep.ErrClosed)
}

func TestSocketCloseCompletesReceives(t *testing.T) {
	sock := rep.NewSocket()
	require.NoError(t, sock.Listen(loopback))
	c, a, rec := newContextAio(t, sock)

	require.NoError(t, c.Recv(a))
	require.NoError(t, sock.Close())
	res := rec.next(t)
	require.ErrorIs(t, res.Err, rep.ErrClosed)

	// Receives issued after close fail the same way.
	require.NoError(t, c.Recv(a))
	require.ErrorIs(t, rec.next(t).Err, rep.ErrClosed)
}

func TestHandshakeRejectsWrongProtocol(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)
	require.NoError(t, c.Recv(a))

	// A rep peer talking to a rep socket is dropped.
	peer := dialRaw(t, sock.Addr(), 0x31)
	peer.readHandshake()
	_, err := peer.conn.Read(make([]byte, 1))
	require.Error(t, err)

	rec.none(t, 50*time.Millisecond)
}

func TestOversizedRequestClosesPipe(t *testing.T) {
	skipRace(t)
	sock := listen(t, rep.WithMaxMsgSize(16))
	c, a, rec := newContextAio(t, sock)
	require.NoError(t, c.Recv(a))

	peer := dialRaw(t, sock.Addr(), 0x30)
	peer.readHandshake()
	peer.send(append([]byte{0x80, 0, 0, 1}, make([]byte, 32)...))
	_, err := peer.conn.Read(make([]byte, 1))
	require.Error(t, err)

	rec.none(t, 50*time.Millisecond)
}

func TestUnlimitedSocketSurvivesHugeLength(t *testing.T) {
	skipRace(t)
	sock := listen(t, rep.WithMaxMsgSize(0))
	c, a, rec := newContextAio(t, sock)
	require.NoError(t, c.Recv(a))

	bad := dialRaw(t, sock.Addr(), 0x30)
	bad.readHandshake()
	_, err := bad.conn.Write(binary.BigEndian.AppendUint64(nil, 1<<63))
	require.NoError(t, err)
	_, err = bad.conn.Read(make([]byte, 1))
	require.Error(t, err)
	rec.none(t, 50*time.Millisecond)

	good := dialRaw(t, sock.Addr(), 0x30)
	good.readHandshake()
	good.send(append([]byte{0x80, 0, 0, 7}, "ping"...))
	res := rec.next(t)
	require.NoError(t, res.Err)
	require.Equal(t, "ping", string(res.Msg.Body))
}

func TestMalformedBacktraceDropped(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)
	require.NoError(t, c.Recv(a))

	peer := dialRaw(t, sock.Addr(), 0x30)
	peer.readHandshake()
	peer.send([]byte{0, 0}) // no request id
	peer.send(append([]byte{0x80, 0, 0, 2}, "ok"...))

	res := rec.next(t)
	require.NoError(t, res.Err)
	require.Equal(t, "ok", string(res.Msg.Body))
}

func TestReplyToClosedPipeDiscarded(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)
	require.NoError(t, c.Recv(a))

	peer := dialRaw(t, sock.Addr(), 0x30)
	peer.readHandshake()
	peer.send([]byte{0x80, 0, 0, 3})
	require.NoError(t, rec.next(t).Err)

	require.NoError(t, peer.conn.Close())
	// Give the pipe reader time to see the close.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, c.Send(a, []byte("late")))
	res := rec.next(t)
	require.Equal(t, rep.OpSend, res.Kind)
	require.NoError(t, res.Err)
}

func TestHoldDefersDelivery(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)

	sock.Hold()
	require.NoError(t, c.Recv(a))
	peer := dialRaw(t, sock.Addr(), 0x30)
	peer.readHandshake()
	peer.send([]byte{0x80, 0, 0, 4})

	rec.none(t, 100*time.Millisecond)
	sock.Release()
	res := rec.next(t)
	require.NoError(t, res.Err)
	require.Empty(t, res.Msg.Body)
}

func TestRequestsFairAcrossPipes(t *testing.T) {
	skipRace(t)
	sock := listen(t)
	c, a, rec := newContextAio(t, sock)

	busy := dialRaw(t, sock.Addr(), 0x30)
	busy.readHandshake()
	quiet := dialRaw(t, sock.Addr(), 0x30)
	quiet.readHandshake()

	sock.Hold()
	for i := range 3 {
		busy.send(append([]byte{0x80, 0, 0, byte(i + 1)}, "busy"...))
	}
	quiet.send(append([]byte{0x80, 0, 0, 9}, "quiet"...))
	// Let both readers queue their requests.
	time.Sleep(100 * time.Millisecond)
	sock.Release()

	var got []string
	for range 2 {
		require.NoError(t, c.Recv(a))
		res := rec.next(t)
		require.NoError(t, res.Err)
		got = append(got, string(res.Msg.Body))
		require.NoError(t, c.Send(a, nil))
		require.NoError(t, rec.next(t).Err)
	}
	require.ElementsMatch(t, []string{"busy", "quiet"}, got)
}

func TestBindErrorUnwrap(t *testing.T) {
	err := error(&rep.BindError{URL: "tcp://x:1", Err: rep.ErrAddress})
	if !errors.Is(err, rep.ErrAddress) {
		t.Fatalf("BindError does not unwrap: %v", err)
	}
	var ce *rep.ContextCreationError
	if !errors.As(error(&rep.ContextCreationError{Index: 2, Err: rep.ErrClosed}), &ce) || ce.Index != 2 {
		t.Fatal("ContextCreationError As")
	}
	if !errors.Is(&rep.OperationSetupError{Index: 1, Err: rep.ErrNilCallback}, rep.ErrNilCallback) {
		t.Fatal("OperationSetupError does not unwrap")
	}
}
