// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"

	"code.hybscloud.com/rep"
	"code.hybscloud.com/rep/internal/config"
	"github.com/spf13/cobra"
)

func newClientCmd(st *state) *cobra.Command {
	var (
		total, peers int
		retry        bool
	)
	cmd := &cobra.Command{
		Use:   "client [url]",
		Short: "Issue synchronous requests and report throughput",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if cmd.Flags().Changed("total") {
				cfg.Client.Total = total
			}
			if cmd.Flags().Changed("peers") {
				cfg.Client.Peers = peers
			}
			if cmd.Flags().Changed("dial-retry") {
				cfg.Client.DialRetry = retry
			}
			if len(args) == 1 {
				cfg.URL = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			st.log.Debug().Str("url", cfg.URL).Int("total", cfg.Client.Total).Int("peers", cfg.Client.Peers).Msg("benchmark")
			r, err := rep.Benchmark(cmd.Context(), rep.BenchConfig{
				URL:   cfg.URL,
				Total: cfg.Client.Total,
				Peers: cfg.Client.Peers,
				Options: []rep.Option{
					rep.WithLogger(st.log),
					rep.WithMaxMsgSize(cfg.Server.MaxMsgSize),
					rep.WithHandshakeTimeout(cfg.Server.HandshakeTimeout),
					rep.WithDialRetry(cfg.Client.DialRetry),
				},
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Request took %d millis\n", r.Elapsed.Milliseconds())
			fmt.Fprintf(out, "Request per sec: %.2f\n", r.RequestsPerSec())
			return nil
		},
	}
	cmd.Flags().IntVar(&total, "total", config.DefaultTotal, "number of requests")
	cmd.Flags().IntVar(&peers, "peers", 1, "concurrent requester connections")
	cmd.Flags().BoolVar(&retry, "dial-retry", true, "keep reconnecting until the server is up")
	return cmd
}
