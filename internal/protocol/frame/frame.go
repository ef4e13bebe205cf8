package frame

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Preamble byte = 0x55

	// HeaderLen covers message type, sender and length after the preamble.
	HeaderLen  = 5
	CRCLen     = 2
	MaxPayload = 255
)

var (
	ErrShortFrame      = errors.New("frame: short frame")
	ErrBadCRC          = errors.New("frame: crc mismatch")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Frame is one complete sender-tagged wire message.
type Frame struct {
	MessageType uint16
	Sender      uint16
	Payload     []byte
}

// Reader decodes frames from a byte stream, skipping bytes until a preamble.
type Reader struct {
	r *bufio.Reader
}

// readerSize holds the largest frame so a candidate can be peeked whole.
const readerSize = 512

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, readerSize)}
}

// ReadFrame returns the next frame. A candidate is peeked, not consumed, so a
// CRC mismatch costs only its preamble byte: ErrBadCRC is returned and the
// next call rescans from the byte after that preamble.
func (fr *Reader) ReadFrame() (Frame, error) {
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b != Preamble {
			continue
		}

		wire, err := fr.peekCandidate()
		if errors.Is(err, ErrShortFrame) {
			if fr.preambleBuffered() {
				continue
			}
			_, _ = fr.r.Discard(fr.r.Buffered())
		}
		if err != nil {
			return Frame{}, err
		}

		body := wire[:len(wire)-CRCLen]
		want := binary.LittleEndian.Uint16(wire[len(body):])
		got := CRC16(0, body)
		msgType := binary.LittleEndian.Uint16(body[0:2])
		if got != want {
			return Frame{}, fmt.Errorf("%w: type=0x%04x got=0x%04x want=0x%04x", ErrBadCRC, msgType, got, want)
		}
		f := Frame{
			MessageType: msgType,
			Sender:      binary.LittleEndian.Uint16(body[2:4]),
			Payload:     append([]byte(nil), body[HeaderLen:]...),
		}
		_, _ = fr.r.Discard(len(wire))
		return f, nil
	}
}

// peekCandidate returns the header, payload and CRC following a preamble
// without consuming them.
func (fr *Reader) peekCandidate() ([]byte, error) {
	head, err := fr.r.Peek(HeaderLen)
	if err != nil {
		return nil, shortErr(err)
	}
	wire, err := fr.r.Peek(HeaderLen + int(head[4]) + CRCLen)
	if err != nil {
		return nil, shortErr(err)
	}
	return wire, nil
}

func (fr *Reader) preambleBuffered() bool {
	rest, _ := fr.r.Peek(fr.r.Buffered())
	return bytes.IndexByte(rest, Preamble) >= 0
}

// ReadFrame decodes a single frame from r.
func ReadFrame(r io.Reader) (Frame, error) {
	return NewReader(r).ReadFrame()
}

func WriteFrame(w io.Writer, f Frame) error {
	buf, err := Encode(f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Encode returns the complete wire bytes for f.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	buf := make([]byte, 1+HeaderLen+len(f.Payload)+CRCLen)
	buf[0] = Preamble
	binary.LittleEndian.PutUint16(buf[1:3], f.MessageType)
	binary.LittleEndian.PutUint16(buf[3:5], f.Sender)
	buf[5] = byte(len(f.Payload))
	copy(buf[6:], f.Payload)
	crc := CRC16(0, buf[1:6+len(f.Payload)])
	binary.LittleEndian.PutUint16(buf[6+len(f.Payload):], crc)
	return buf, nil
}

// CRC16 continues a CRC-16/XMODEM (poly 0x1021) over data.
func CRC16(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func shortErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortFrame
	}
	return err
}
