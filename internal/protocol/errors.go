package protocol

import "errors"

var (
	ErrMalformedMessage = errors.New("protocol: malformed message")
	ErrPayloadTruncated = errors.New("protocol: payload truncated")
)
