package settings

import (
	"fmt"

	"github.com/danmuck/fwsettings/internal/protocol"
)

// NotifyFunc validates and applies a written value. A nil return acknowledges
// the write whether or not the backing storage changed.
type NotifyFunc func(s *Setting, value string) error

// Setting is one addressable parameter. Value is caller-owned backing storage;
// its length is the value width seen by the codec, and writes mutate it in place.
type Setting struct {
	Section string
	Name    string
	Value   []byte
	Notify  NotifyFunc

	typeID TypeID
	codec  Codec
}

// DefaultNotify parses value into the backing storage with the setting's codec.
func DefaultNotify(s *Setting, value string) error {
	return s.codec.Parse(s.Value, value)
}

// ReadOnlyNotify accepts every write and changes nothing.
func ReadOnlyNotify(*Setting, string) error {
	return nil
}

func (s *Setting) Type() TypeID { return s.typeID }

// Codec is nil until the setting is registered.
func (s *Setting) Codec() Codec { return s.codec }

// Text renders the current value with the setting's codec.
func (s *Setting) Text() (string, error) {
	if s.codec == nil {
		return "", fmt.Errorf("%w: %s.%s not registered", ErrUnknownType, s.Section, s.Name)
	}
	return s.codec.Format(s.Value)
}

// FormatSetting writes section, name and value text as NUL-terminated fields,
// then the codec's type metadata if it has any. It returns the bytes written
// and never writes past len(buf).
func FormatSetting(s *Setting, buf []byte) (int, error) {
	w := protocol.NewPayloadWriter(buf)
	if err := w.WriteField(s.Section); err != nil {
		return w.Len(), err
	}
	if err := w.WriteField(s.Name); err != nil {
		return w.Len(), err
	}
	text, err := s.Text()
	if err != nil {
		return w.Len(), err
	}
	if err := w.WriteField(text); err != nil {
		return w.Len(), err
	}
	if tf, ok := s.codec.(TypeFormatter); ok {
		if err := w.WriteField(tf.FormatType()); err != nil {
			return w.Len(), err
		}
	}
	return w.Len(), nil
}

// echoPrefixLen is the length of the section and name fields that a
// registration echo must repeat.
func echoPrefixLen(s *Setting) int {
	return len(s.Section) + 1 + len(s.Name) + 1
}
