package settings

import "errors"

var (
	ErrUnknownSetting      = errors.New("settings: unknown setting")
	ErrNotifyRejected      = errors.New("settings: notify rejected value")
	ErrSenderMismatch      = errors.New("settings: unexpected sender")
	ErrRegistrationTimeout = errors.New("settings: registration not acknowledged")
	ErrUnknownType         = errors.New("settings: unknown setting type")
	ErrHandshakePending    = errors.New("settings: registration already pending")
	ErrUnsupportedWidth    = errors.New("settings: unsupported value width")
	ErrInvalidValue        = errors.New("settings: invalid value")
	ErrInvalidEnum         = errors.New("settings: invalid enum")
	ErrNilTransport        = errors.New("settings: nil transport")
	ErrNilSetting          = errors.New("settings: nil setting")
)
