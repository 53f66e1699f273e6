// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing identifier for pipes, contexts,
// and aios. Zero is never assigned.
type Serial = uint32

// Each kind of object draws from its own counter so ids stay dense.
var (
	pipeCounter    atomix.Uint32
	contextCounter atomix.Uint32
	aioCounter     atomix.Uint32
)

func nextPipeSerial() Serial    { return pipeCounter.Add(1) }
func nextContextSerial() Serial { return contextCounter.Add(1) }
func nextAioSerial() Serial     { return aioCounter.Add(1) }
