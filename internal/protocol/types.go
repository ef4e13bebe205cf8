package protocol

import "fmt"

// MessageType identifies a settings message on the link.
type MessageType uint16

const (
	MsgSettingsWrite    MessageType = 0x00A0
	MsgSettingsReadReq  MessageType = 0x00A4
	MsgSettingsReadResp MessageType = 0x00A5
	MsgSettingsRegister MessageType = 0x00AE
)

const (
	// MaxPayload is the largest payload a single frame carries.
	MaxPayload = 255

	// HostSenderID tags messages originating from the host daemon.
	HostSenderID uint16 = 0x42

	// Terminator ends every text field in a settings payload.
	Terminator byte = 0x00
)

func (t MessageType) String() string {
	switch t {
	case MsgSettingsWrite:
		return "settings.write"
	case MsgSettingsReadReq:
		return "settings.read_req"
	case MsgSettingsReadResp:
		return "settings.read_resp"
	case MsgSettingsRegister:
		return "settings.register"
	default:
		return fmt.Sprintf("msg.0x%04x", uint16(t))
	}
}
