package protocol

import (
	"bytes"
	"fmt"
)

// WriteRequest is a decoded SETTINGS_WRITE payload.
type WriteRequest struct {
	Section string
	Name    string
	Value   string
}

// ReadRequest is a decoded SETTINGS_READ_REQ payload.
type ReadRequest struct {
	Section string
	Name    string
}

// Tokenize splits payload on terminators. Bytes after the final terminator
// are returned as a last, unterminated token.
func Tokenize(payload []byte) []string {
	if len(payload) == 0 {
		return nil
	}
	out := make([]string, 0, 4)
	for len(payload) > 0 {
		i := bytes.IndexByte(payload, Terminator)
		if i < 0 {
			out = append(out, string(payload))
			break
		}
		out = append(out, string(payload[:i]))
		payload = payload[i+1:]
	}
	return out
}

// ParseWrite decodes section, name and value. The third terminator must be
// the final byte; "s\x00n\x00\x00" carries an empty value, "s\x00n\x00" is malformed.
func ParseWrite(payload []byte) (WriteRequest, error) {
	ends, err := fieldEnds(payload, 3)
	if err != nil {
		return WriteRequest{}, err
	}
	return WriteRequest{
		Section: string(payload[:ends[0]]),
		Name:    string(payload[ends[0]+1 : ends[1]]),
		Value:   string(payload[ends[1]+1 : ends[2]]),
	}, nil
}

// ParseReadRequest decodes section and name. The second terminator must be the final byte.
func ParseReadRequest(payload []byte) (ReadRequest, error) {
	ends, err := fieldEnds(payload, 2)
	if err != nil {
		return ReadRequest{}, err
	}
	return ReadRequest{
		Section: string(payload[:ends[0]]),
		Name:    string(payload[ends[0]+1 : ends[1]]),
	}, nil
}

// fieldEnds returns the terminator offsets of exactly want fields, the last
// of which must close the payload.
func fieldEnds(payload []byte, want int) ([]int, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedMessage)
	}
	last := len(payload) - 1
	if payload[last] != Terminator {
		return nil, fmt.Errorf("%w: missing final terminator", ErrMalformedMessage)
	}
	ends := make([]int, 0, want)
	for i, b := range payload {
		if b != Terminator {
			continue
		}
		if len(ends) == want {
			return nil, fmt.Errorf("%w: unexpected terminator at %d", ErrMalformedMessage, i)
		}
		if len(ends) == want-1 && i != last {
			return nil, fmt.Errorf("%w: field %d ends at %d before payload end", ErrMalformedMessage, want, i)
		}
		ends = append(ends, i)
	}
	if len(ends) != want {
		return nil, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedMessage, want, len(ends))
	}
	return ends, nil
}
