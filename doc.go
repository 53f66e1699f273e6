// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rep provides a completion-driven request/reply responder: a
// fixed pool of workers, each pairing one [Context] with one [Aio],
// cycling receive and send over a single shared [Socket].
//
// The wire protocol is the SP req/rep pattern over TCP, so the server
// interoperates with nng req0 peers.
//
// # Architecture
//
//   - Transport: [Socket] accepts requester pipes. Each pipe reader pushes requests into a bounded SPSC inbox via [code.hybscloud.com/lfq], waiting with [code.hybscloud.com/iox.Backoff] when it is full.
//   - Completions: operations never block. A [Runtime] delivers each outcome to the [Aio]'s [Callback] on one of a fixed set of dispatcher goroutines.
//   - Workers: a [Worker] keeps an explicit [State] advanced by the pure [Transition], and steps an [Exchange] protocol built on [code.hybscloud.com/kont] one effect per completion.
//   - Admission control: a [Pool] of size N has at most N exchanges in flight. Further requests wait in the pipe inboxes, then in the kernel.
//
// # API Topologies
//
//   - Operations: [Context.Recv], [Context.Send], [Aio.Sleep]. Effects: [Recv], [Send].
//   - Protocols: [RecvBind], [SendThen], [Exchange]; stepping via [Step], [Issue], [Resume].
//   - Pool: [NewPool], [Pool.Start], [Pool.Close] with a [FailurePolicy] of [Escalate], [Retry] or [Recreate].
//   - Requester: [Dial], [Client.Request], and [Benchmark].
//
// # Failure
//
// By default a failed operation escalates: the pool logs it and exits the
// process with status 1. That suits a benchmark. Services should set
// [WithPolicy] to [Recreate] so one broken exchange does not stop the others.
//
// # Example
//
//	sock := rep.NewSocket()
//	pool, err := rep.NewPool(sock, 128, rep.StaticReply([]byte("Ferris")))
//	if err != nil {
//		return err
//	}
//	if err := pool.Start("tcp://127.0.0.1:32050"); err != nil {
//		return err
//	}
//	defer pool.Close()
package rep
