// Package transport owns the message link between firmware settings and the host.
//
// Ownership boundary:
// - the Transport contract consumed by the settings core
// - Link: frame-based implementation over a serial port or TCP stream
// - loop dispatch with timeout, interrupt and closure submission
package transport

import (
	"errors"
	"time"

	"github.com/danmuck/fwsettings/internal/protocol"
)

var (
	ErrCallbackExists = errors.New("transport: callback already registered")
	ErrNilHandler     = errors.New("transport: nil handler")
	ErrClosed         = errors.New("transport: link closed")
)

// Handler receives one whole inbound message. The payload is only valid for
// the duration of the call.
type Handler func(sender uint16, payload []byte)

// Transport is the message link the settings core drives.
type Transport interface {
	// Send transmits payload as one message. The payload is not retained.
	Send(msgType protocol.MessageType, payload []byte) error
	RegisterCallback(msgType protocol.MessageType, h Handler) error
	// LoopWithTimeout dispatches inbound messages on the calling goroutine
	// until d elapses or Interrupt is called.
	LoopWithTimeout(d time.Duration)
	// Interrupt ends the current LoopWithTimeout early. It is safe to call from
	// inside a Handler.
	Interrupt()
}
