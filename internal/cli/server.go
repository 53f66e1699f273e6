// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"time"

	"code.hybscloud.com/rep"
	"code.hybscloud.com/rep/internal/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// statsInterval is how often a running server logs its counters.
const statsInterval = 10 * time.Second

func newServerCmd(st *state) *cobra.Command {
	var (
		parallel    int
		reply       string
		policy      string
		dispatchers int
	)
	cmd := &cobra.Command{
		Use:   "server [url]",
		Short: "Answer every request with a fixed reply until interrupted",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			flags := cmd.Flags()
			if flags.Changed("parallel") {
				cfg.Server.Parallel = parallel
			}
			if flags.Changed("reply") {
				cfg.Server.Reply = reply
			}
			if flags.Changed("policy") {
				cfg.Server.Policy = policy
			}
			if flags.Changed("dispatchers") {
				cfg.Server.Dispatchers = dispatchers
			}
			if len(args) == 1 {
				cfg.URL = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, st.log)
		},
	}
	f := cmd.Flags()
	f.IntVar(&parallel, "parallel", config.DefaultParallel, "number of workers, the bound on requests in flight")
	f.StringVar(&reply, "reply", config.DefaultReply, "reply sent to every request")
	f.StringVar(&policy, "policy", "escalate", "failed operation policy: escalate, retry, recreate")
	f.IntVar(&dispatchers, "dispatchers", 0, "completion dispatcher goroutines (0 uses GOMAXPROCS)")
	return cmd
}

// runServer serves until ctx is done.
func runServer(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	policy, err := rep.ParsePolicy(cfg.Server.Policy)
	if err != nil {
		return err
	}

	rt := rep.NewRuntime(cfg.Server.Dispatchers)
	defer rt.Close()

	sock := rep.NewSocket(
		rep.WithLogger(log),
		rep.WithMaxMsgSize(cfg.Server.MaxMsgSize),
		rep.WithHandshakeTimeout(cfg.Server.HandshakeTimeout),
		rep.WithReusePort(cfg.Server.ReusePort),
		rep.WithBufferSizes(cfg.Server.RecvBuffer, cfg.Server.SendBuffer),
	)
	pool, err := rep.NewPool(sock, cfg.Server.Parallel, rep.StaticReply([]byte(cfg.Server.Reply)),
		rep.WithPolicy(policy),
		rep.WithRuntime(rt),
	)
	if err != nil {
		_ = sock.Close()
		return err
	}
	if err := pool.Start(cfg.URL); err != nil {
		_ = pool.Close()
		return err
	}
	log.Info().Int("parallel", pool.Size()).Stringer("policy", policy).Str("addr", pool.Addr().String()).Msg("serving")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return pool.Close()
	})
	g.Go(func() error {
		t := time.NewTicker(statsInterval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				s := pool.Stats()
				log.Info().Uint64("received", s.Received).Uint64("replied", s.Replied).
					Uint64("failures", s.Failures).Msg("stats")
			}
		}
	})
	return g.Wait()
}
