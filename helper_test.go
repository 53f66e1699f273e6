// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep_test

import (
	"context"
	"testing"
	"time"

	"code.hybscloud.com/rep"
	"github.com/stretchr/testify/require"
)

const (
	loopback    = "tcp://127.0.0.1:0"
	testTimeout = 5 * time.Second
)

// startPool starts a pool of size workers on a loopback port and returns
// it with the URL clients should dial. The pool and its runtime are closed
// when the test ends. Failures are reported to t instead of exiting.
func startPool(t testing.TB, size int, h rep.Handler, opts ...rep.PoolOption) (*rep.Pool, string) {
	t.Helper()
	return startPoolAt(t, loopback, size, h, opts...)
}

// startPoolAt is startPool bound to url.
func startPoolAt(t testing.TB, url string, size int, h rep.Handler, opts ...rep.PoolOption) (*rep.Pool, string) {
	t.Helper()
	rt := rep.NewRuntime(size + 2)
	sock := rep.NewSocket()
	opts = append([]rep.PoolOption{
		rep.WithRuntime(rt),
		rep.WithFatal(func(err error) { t.Errorf("fatal: %v", err) }),
	}, opts...)
	pool, err := rep.NewPool(sock, size, h, opts...)
	require.NoError(t, err)
	require.NoError(t, pool.Start(url))
	t.Cleanup(func() {
		_ = pool.Close()
		rt.Close()
	})
	return pool, "tcp://" + pool.Addr().String()
}

// dial connects a client that is closed when the test ends.
func dial(t testing.TB, url string) *rep.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	c, err := rep.Dial(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// request performs one round trip bounded by testTimeout.
func request(t testing.TB, c *rep.Client, body []byte) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	reply, err := c.Request(ctx, body)
	require.NoError(t, err)
	return reply
}

// recorder is an Aio callback that forwards results to a channel.
type recorder chan rep.Result

func (r recorder) callback(_ *rep.Aio, res rep.Result) { r <- res }

func (r recorder) next(t testing.TB) rep.Result {
	t.Helper()
	select {
	case res := <-r:
		return res
	case <-time.After(testTimeout):
		t.Fatal("no completion")
		return rep.Result{}
	}
}

// none asserts that no completion arrives within d.
func (r recorder) none(t testing.TB, d time.Duration) {
	t.Helper()
	select {
	case res := <-r:
		t.Fatalf("unexpected completion %s err=%v", res.Kind, res.Err)
	case <-time.After(d):
	}
}
