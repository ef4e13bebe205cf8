package settings

import (
	"bytes"
	"time"

	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/protocol"
	"github.com/danmuck/fwsettings/internal/transport"
)

const (
	RegisterAttempts = 5
	RegisterTimeout  = 100 * time.Millisecond
)

// HandshakeState tracks one register-and-await-echo exchange.
type HandshakeState int

const (
	HandshakeIdle HandshakeState = iota
	HandshakePending
	HandshakeMatched
	HandshakeExhausted
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeIdle:
		return "idle"
	case HandshakePending:
		return "pending"
	case HandshakeMatched:
		return "matched"
	case HandshakeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// handshake is reused across Register calls; only one may be pending.
type handshake struct {
	state      HandshakeState
	last       HandshakeState
	attempts   int
	msg        [protocol.MaxPayload]byte
	msgLen     int
	compareLen int
}

func (h *handshake) begin(msgLen, compareLen int) {
	h.msgLen = msgLen
	h.compareLen = min(compareLen, msgLen)
	h.attempts = 0
	h.state = HandshakePending
}

// observe reports whether payload echoes the pending registration and, if so,
// resolves it.
func (h *handshake) observe(payload []byte) bool {
	if h.state != HandshakePending {
		return false
	}
	if len(payload) < h.compareLen || !bytes.Equal(payload[:h.compareLen], h.msg[:h.compareLen]) {
		return false
	}
	h.state = HandshakeMatched
	return true
}

// run sends the registration until it is echoed or the attempts run out.
func (h *handshake) run(tr transport.Transport) HandshakeState {
	for h.attempts < RegisterAttempts {
		h.attempts++
		if err := tr.Send(protocol.MsgSettingsRegister, h.msg[:h.msgLen]); err != nil {
			logs.Warnf("settings.handshake send attempt=%d err=%v", h.attempts, err)
		}
		tr.LoopWithTimeout(RegisterTimeout)
		if h.state == HandshakeMatched {
			break
		}
	}
	if h.state != HandshakeMatched {
		h.state = HandshakeExhausted
	}
	h.last = h.state
	h.state = HandshakeIdle
	return h.last
}
