package settings

import (
	"testing"
	"time"

	"github.com/danmuck/fwsettings/internal/protocol"
	"github.com/danmuck/fwsettings/internal/transport"
)

type sentMessage struct {
	msgType protocol.MessageType
	payload []byte
}

// fakeTransport dispatches synchronously; onLoop stands in for inbound
// traffic arriving during LoopWithTimeout.
type fakeTransport struct {
	callbacks  map[protocol.MessageType]transport.Handler
	sent       []sentMessage
	loops      int
	interrupts int
	onLoop     func(f *fakeTransport)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{callbacks: make(map[protocol.MessageType]transport.Handler)}
}

func (f *fakeTransport) Send(msgType protocol.MessageType, payload []byte) error {
	f.sent = append(f.sent, sentMessage{msgType: msgType, payload: append([]byte(nil), payload...)})
	return nil
}

func (f *fakeTransport) RegisterCallback(msgType protocol.MessageType, h transport.Handler) error {
	if _, ok := f.callbacks[msgType]; ok {
		return transport.ErrCallbackExists
	}
	f.callbacks[msgType] = h
	return nil
}

func (f *fakeTransport) LoopWithTimeout(time.Duration) {
	f.loops++
	if f.onLoop != nil {
		f.onLoop(f)
	}
}

func (f *fakeTransport) Interrupt() {
	f.interrupts++
}

func (f *fakeTransport) deliver(msgType protocol.MessageType, sender uint16, payload []byte) {
	if h, ok := f.callbacks[msgType]; ok {
		h(sender, payload)
	}
}

func (f *fakeTransport) sentOfType(msgType protocol.MessageType) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.msgType == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.sent = nil
	f.loops = 0
	f.interrupts = 0
}

// echoRegistrations makes the fake host answer every REGISTER with a write
// of the registered value, the way the host daemon acknowledges a setting.
func echoRegistrations(f *fakeTransport) {
	regs := f.sentOfType(protocol.MsgSettingsRegister)
	if len(regs) == 0 {
		return
	}
	tokens := protocol.Tokenize(regs[len(regs)-1].payload)
	echo, err := protocol.EncodeWrite(tokens[0], tokens[1], tokens[2])
	if err != nil {
		panic(err)
	}
	f.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, echo)
}

func newTestSettings(t *testing.T, onLoop func(f *fakeTransport)) (*Settings, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	tr.onLoop = onLoop
	s, err := New(tr, DefaultConfig())
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	return s, tr
}
