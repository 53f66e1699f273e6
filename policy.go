// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"fmt"
	"strings"
)

// Decision is what a worker does after one of its operations failed.
type Decision uint8

const (
	// Escalate reports the failure to the pool's fatal hook, which by
	// default logs it and exits the process with status 1. It suits a
	// benchmark; a production service should isolate failures instead.
	Escalate Decision = iota
	// Retry abandons the current exchange and issues a new receive on the
	// same context.
	Retry
	// Recreate closes the worker's context, creates a new one on the same
	// socket, and starts a new exchange on it.
	Recreate
)

func (d Decision) String() string {
	switch d {
	case Escalate:
		return "escalate"
	case Retry:
		return "retry"
	case Recreate:
		return "recreate"
	default:
		return fmt.Sprintf("decision(%d)", uint8(d))
	}
}

// Decide makes a Decision a FailurePolicy that always decides d.
func (d Decision) Decide(int, Result) Decision { return d }

// FailurePolicy decides how a worker recovers from a failed operation.
// It is called on the failing worker's callback and must not block.
type FailurePolicy interface {
	Decide(worker int, res Result) Decision
}

// PolicyFunc adapts a function to FailurePolicy.
type PolicyFunc func(worker int, res Result) Decision

func (f PolicyFunc) Decide(worker int, res Result) Decision { return f(worker, res) }

// ParsePolicy maps "escalate", "retry" or "recreate" to its Decision.
// The empty string is Escalate.
func ParsePolicy(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "escalate":
		return Escalate, nil
	case "retry":
		return Retry, nil
	case "recreate":
		return Recreate, nil
	}
	return Escalate, fmt.Errorf("rep: unknown failure policy %q", s)
}
