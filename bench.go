// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultReply is the reply the benchmark server sends to every request.
var DefaultReply = []byte("Ferris")

// DefaultPayload returns the benchmark request: 10 as a little-endian uint64.
func DefaultPayload() []byte {
	return binary.LittleEndian.AppendUint64(nil, 10)
}

// BenchConfig describes a benchmark run.
type BenchConfig struct {
	URL string
	// Total is the number of requests across all peers.
	Total int
	// Peers is the number of clients issuing requests concurrently, each
	// over its own connection. Zero means one.
	Peers int
	// Payload is the request body. Nil means DefaultPayload().
	Payload []byte
	Options []Option
}

// Report is the outcome of a benchmark run.
type Report struct {
	Total   int
	Elapsed time.Duration
}

// RequestsPerSec returns the completed round trips per second.
func (r Report) RequestsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

// Benchmark dials cfg.Peers clients and has them issue cfg.Total
// synchronous requests between them, timing the whole run. Connection
// setup is not timed.
func Benchmark(ctx context.Context, cfg BenchConfig) (Report, error) {
	peers := max(cfg.Peers, 1)
	if cfg.Total < 0 {
		return Report{}, fmt.Errorf("rep: negative request total %d", cfg.Total)
	}
	payload := cfg.Payload
	if payload == nil {
		payload = DefaultPayload()
	}

	clients := make([]*Client, 0, peers)
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	for range peers {
		c, err := Dial(ctx, cfg.URL, cfg.Options...)
		if err != nil {
			return Report{}, err
		}
		clients = append(clients, c)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clients {
		n := cfg.Total / peers
		if i < cfg.Total%peers {
			n++
		}
		g.Go(func() error {
			for range n {
				if _, err := c.Request(gctx, payload); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return Report{Total: cfg.Total, Elapsed: time.Since(start)}, nil
}
