// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is reported for operations on a closed socket or context.
	ErrClosed = errors.New("rep: object closed")
	// ErrBusy is returned when an Aio or Context already has an operation in flight.
	ErrBusy = errors.New("rep: operation already in flight")
	// ErrState is reported for a send without a received request, and for
	// completions that do not match the worker state.
	ErrState = errors.New("rep: incorrect state")
	// ErrProtocol is reported when a peer violates the SP handshake or framing.
	ErrProtocol = errors.New("rep: protocol error")
	// ErrTooLarge is reported when a message exceeds the configured maximum size.
	ErrTooLarge = errors.New("rep: message too large")
	// ErrStarted is returned by Pool.Start when the pool is already running.
	ErrStarted = errors.New("rep: pool already started")
	// ErrInvalidSize is returned by NewPool for a size below one.
	ErrInvalidSize = errors.New("rep: pool size must be positive")
	// ErrNilCallback is returned by NewAio when the callback is nil.
	ErrNilCallback = errors.New("rep: nil completion callback")
	// ErrListening is wrapped by BindError when Listen is called twice.
	ErrListening = errors.New("rep: socket already listening")
	// ErrAddress is wrapped by BindError for malformed listen URLs.
	ErrAddress = errors.New("rep: invalid address")
)

// BindError reports a failure to bind and listen on an address.
type BindError struct {
	URL string
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("rep: bind %s: %v", e.URL, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ContextCreationError reports a context that could not be created while
// constructing a pool.
type ContextCreationError struct {
	Index int
	Err   error
}

func (e *ContextCreationError) Error() string {
	return fmt.Sprintf("rep: create context %d: %v", e.Index, e.Err)
}

func (e *ContextCreationError) Unwrap() error { return e.Err }

// OperationSetupError reports an Aio that could not be created while
// constructing a pool, or a first receive Start could not issue.
type OperationSetupError struct {
	Index int
	Err   error
}

func (e *OperationSetupError) Error() string {
	return fmt.Sprintf("rep: set up operation %d: %v", e.Index, e.Err)
}

func (e *OperationSetupError) Unwrap() error { return e.Err }
