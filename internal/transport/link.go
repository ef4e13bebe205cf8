package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/protocol"
	"github.com/danmuck/fwsettings/internal/protocol/frame"
)

// LinkConfig configures a Link.
type LinkConfig struct {
	// SenderID tags every outbound frame.
	SenderID uint16
	// QueueDepth bounds inbound frames buffered between reads and dispatch.
	QueueDepth int
}

func DefaultLinkConfig() LinkConfig {
	return LinkConfig{SenderID: 0, QueueDepth: 64}
}

// Link implements Transport over a framed byte stream. Frames are read on a
// background goroutine; callbacks and Do closures only run on the goroutine
// inside Run or LoopWithTimeout.
type Link struct {
	cfg       LinkConfig
	rwc       io.ReadWriteCloser
	writeMu   sync.Mutex
	handlers  map[protocol.MessageType]Handler
	frames    chan frame.Frame
	calls     chan func()
	interrupt chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	errMu     sync.Mutex
	readErr   error
}

var _ Transport = (*Link)(nil)

func NewLink(rwc io.ReadWriteCloser, cfg LinkConfig) *Link {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultLinkConfig().QueueDepth
	}
	return &Link{
		cfg:       cfg,
		rwc:       rwc,
		handlers:  make(map[protocol.MessageType]Handler),
		frames:    make(chan frame.Frame, cfg.QueueDepth),
		calls:     make(chan func()),
		interrupt: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the frame reader. It is called implicitly by the first loop.
func (l *Link) Start() {
	l.startOnce.Do(func() {
		go l.readLoop()
	})
}

func (l *Link) readLoop() {
	r := frame.NewReader(l.rwc)
	for {
		f, err := r.ReadFrame()
		if errors.Is(err, frame.ErrBadCRC) {
			logs.Warnf("transport.readLoop drop frame err=%v", err)
			continue
		}
		if err != nil {
			l.fail(err)
			return
		}
		select {
		case l.frames <- f:
		case <-l.done:
			return
		}
	}
}

func (l *Link) fail(err error) {
	l.errMu.Lock()
	if l.readErr == nil {
		l.readErr = err
	}
	l.errMu.Unlock()
	l.closeOnce.Do(func() { close(l.done) })
}

// Err returns the error that stopped the reader, if any.
func (l *Link) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.readErr
}

func (l *Link) Close() error {
	l.fail(ErrClosed)
	return l.rwc.Close()
}

func (l *Link) Send(msgType protocol.MessageType, payload []byte) error {
	buf, err := frame.Encode(frame.Frame{MessageType: uint16(msgType), Sender: l.cfg.SenderID, Payload: payload})
	if err != nil {
		return err
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if _, err := l.rwc.Write(buf); err != nil {
		return fmt.Errorf("transport: send %s: %w", msgType, err)
	}
	return nil
}

// RegisterCallback must be called before the loop starts dispatching.
func (l *Link) RegisterCallback(msgType protocol.MessageType, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if _, ok := l.handlers[msgType]; ok {
		return fmt.Errorf("%w: %s", ErrCallbackExists, msgType)
	}
	l.handlers[msgType] = h
	return nil
}

func (l *Link) LoopWithTimeout(d time.Duration) {
	l.Start()
	select {
	case <-l.interrupt:
	default:
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case f := <-l.frames:
			l.dispatch(f)
		case fn := <-l.calls:
			fn()
		case <-l.interrupt:
			return
		case <-timer.C:
			return
		case <-l.done:
			return
		}
	}
}

func (l *Link) Interrupt() {
	select {
	case l.interrupt <- struct{}{}:
	default:
	}
}

// Run dispatches until ctx is cancelled or the stream fails.
func (l *Link) Run(ctx context.Context) error {
	l.Start()
	for {
		select {
		case f := <-l.frames:
			l.dispatch(f)
		case fn := <-l.calls:
			fn()
		case <-l.interrupt:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return l.Err()
		}
	}
}

// Do runs fn on the dispatching goroutine and waits for it to finish.
func (l *Link) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.calls <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) dispatch(f frame.Frame) {
	msgType := protocol.MessageType(f.MessageType)
	h, ok := l.handlers[msgType]
	if !ok {
		logs.Tracef("transport.dispatch unhandled type=%s sender=0x%04x len=%d", msgType, f.Sender, len(f.Payload))
		return
	}
	h(f.Sender, f.Payload)
}
