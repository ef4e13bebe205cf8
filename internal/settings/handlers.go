package settings

import (
	"errors"
	"fmt"

	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/observability"
	"github.com/danmuck/fwsettings/internal/protocol"
)

// handleWrite applies a host write and acknowledges it with a read response.
// Every failure is logged and dropped; the wire protocol has no negative reply.
func (s *Settings) handleWrite(sender uint16, payload []byte) {
	// Echo detection precedes validation so that any write carrying the
	// pending prefix resolves the handshake.
	if s.hs.observe(payload) {
		logs.Debugf("settings.handleWrite registration echo matched attempts=%d", s.hs.attempts)
		s.tr.Interrupt()
	}

	if sender != s.cfg.HostSenderID {
		s.drop(protocol.MsgSettingsWrite, fmt.Errorf("%w: 0x%04x", ErrSenderMismatch, sender))
		return
	}
	req, err := protocol.ParseWrite(payload)
	if err != nil {
		s.drop(protocol.MsgSettingsWrite, err)
		return
	}
	setting, ok := s.registry.Lookup(req.Section, req.Name)
	if !ok {
		s.drop(protocol.MsgSettingsWrite, fmt.Errorf("%w: %s.%s", ErrUnknownSetting, req.Section, req.Name))
		return
	}
	if err := setting.Notify(setting, req.Value); err != nil {
		s.drop(protocol.MsgSettingsWrite, fmt.Errorf("%w: %s.%s=%q: %v", ErrNotifyRejected, req.Section, req.Name, req.Value, err))
		return
	}
	s.respond(protocol.MsgSettingsWrite, setting)
}

// handleRead replies with the current value of the requested setting.
func (s *Settings) handleRead(sender uint16, payload []byte) {
	if sender != s.cfg.HostSenderID {
		s.drop(protocol.MsgSettingsReadReq, fmt.Errorf("%w: 0x%04x", ErrSenderMismatch, sender))
		return
	}
	req, err := protocol.ParseReadRequest(payload)
	if err != nil {
		s.drop(protocol.MsgSettingsReadReq, err)
		return
	}
	setting, ok := s.registry.Lookup(req.Section, req.Name)
	if !ok {
		s.drop(protocol.MsgSettingsReadReq, fmt.Errorf("%w: %s.%s", ErrUnknownSetting, req.Section, req.Name))
		return
	}
	s.respond(protocol.MsgSettingsReadReq, setting)
}

func (s *Settings) respond(origin protocol.MessageType, setting *Setting) {
	n, err := FormatSetting(setting, s.reply[:])
	if err != nil {
		s.drop(origin, err)
		return
	}
	if err := s.tr.Send(protocol.MsgSettingsReadResp, s.reply[:n]); err != nil {
		logs.Errf("settings.respond send origin=%s section=%q name=%q err=%v", origin, setting.Section, setting.Name, err)
		observability.RecordMessage(origin.String(), "send_failed")
		return
	}
	observability.RecordMessage(origin.String(), "ok")
}

func (s *Settings) drop(msgType protocol.MessageType, err error) {
	reason := dropReason(err)
	logs.Warnf("settings.drop type=%s reason=%s err=%v", msgType, reason, err)
	observability.RecordDrop(msgType.String(), reason)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrSenderMismatch):
		return "sender_mismatch"
	case errors.Is(err, protocol.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, ErrUnknownSetting):
		return "unknown_setting"
	case errors.Is(err, ErrNotifyRejected):
		return "notify_rejected"
	case errors.Is(err, protocol.ErrPayloadTruncated):
		return "truncated"
	default:
		return "error"
	}
}
