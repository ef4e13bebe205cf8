package settings

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danmuck/fwsettings/internal/protocol"
	"github.com/danmuck/fwsettings/internal/testutil/testlog"
)

func settingNames(list []*Setting) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.Name)
	}
	return out
}

func TestRegisterKeepsSectionBlocks(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestSettings(t, echoRegistrations)

	a := &Setting{Section: "s1", Name: "a", Value: Int32Value(1)}
	b := &Setting{Section: "s2", Name: "b", Value: Int32Value(2)}
	c := &Setting{Section: "s1", Name: "c", Value: Int32Value(3)}
	d := &Setting{Section: "s3", Name: "d", Value: Int32Value(4)}
	e := &Setting{Section: "s2", Name: "e", Value: Int32Value(5)}
	for _, st := range []*Setting{a, b, c} {
		if err := s.Register(st, TypeInt); err != nil {
			t.Fatalf("register %s: %v", st.Name, err)
		}
	}
	if diff := cmp.Diff([]string{"a", "c", "b"}, settingNames(s.Registry().All())); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	for _, st := range []*Setting{d, e} {
		if err := s.Register(st, TypeInt); err != nil {
			t.Fatalf("register %s: %v", st.Name, err)
		}
	}
	if diff := cmp.Diff([]string{"a", "c", "b", "e", "d"}, settingNames(s.Registry().All())); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupExactMatchOnly(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "uart", Name: "baudrate", Value: Int32Value(115200)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := s.Lookup("uart", "baudrate")
	if !ok || got != st {
		t.Fatalf("expected exact match, ok=%v", ok)
	}
	for _, q := range [][2]string{{"uart", "baud"}, {"uar", "baudrate"}, {"UART", "baudrate"}, {"uart", "Baudrate"}, {"", ""}} {
		if _, ok := s.Lookup(q[0], q[1]); ok {
			t.Fatalf("unexpected match for %q.%q", q[0], q[1])
		}
	}
}

func TestHandshakeMatchedOnFirstAttempt(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.LastHandshake() != HandshakeMatched {
		t.Fatalf("expected matched, got %s", s.LastHandshake())
	}
	regs := tr.sentOfType(protocol.MsgSettingsRegister)
	if len(regs) != 1 || tr.loops != 1 || tr.interrupts != 1 {
		t.Fatalf("unexpected exchange registers=%d loops=%d interrupts=%d", len(regs), tr.loops, tr.interrupts)
	}
	if !bytes.Equal(regs[0].payload, []byte("s1\x00v1\x005\x00")) {
		t.Fatalf("unexpected register payload: %q", regs[0].payload)
	}
}

func TestHandshakeMatchedAfterRetries(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, func(f *fakeTransport) {
		if f.loops == 3 {
			echoRegistrations(f)
		}
	})
	if err := s.Register(&Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.LastHandshake() != HandshakeMatched {
		t.Fatalf("expected matched, got %s", s.LastHandshake())
	}
	if n := len(tr.sentOfType(protocol.MsgSettingsRegister)); n != 3 {
		t.Fatalf("expected 3 register attempts, got %d", n)
	}
}

func TestHandshakeExhaustedLeavesSettingRegistered(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, nil)
	st := &Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register should not report timeout, got %v", err)
	}
	if s.LastHandshake() != HandshakeExhausted {
		t.Fatalf("expected exhausted, got %s", s.LastHandshake())
	}
	if n := len(tr.sentOfType(protocol.MsgSettingsRegister)); n != RegisterAttempts {
		t.Fatalf("expected %d register attempts, got %d", RegisterAttempts, n)
	}
	if tr.loops != RegisterAttempts || tr.interrupts != 0 {
		t.Fatalf("unexpected loops=%d interrupts=%d", tr.loops, tr.interrupts)
	}
	if got, ok := s.Lookup("s1", "v1"); !ok || got != st {
		t.Fatalf("expected setting registered despite exhausted handshake")
	}
	if s.hs.state != HandshakeIdle {
		t.Fatalf("expected handshake idle after resolve, got %s", s.hs.state)
	}
}

func TestHandshakeEchoIgnoresOtherSettings(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestSettings(t, func(f *fakeTransport) {
		other, _ := protocol.EncodeWrite("s1", "v10", "5")
		f.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, other)
	})
	if err := s.Register(&Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.LastHandshake() != HandshakeExhausted {
		t.Fatalf("expected exhausted for non-matching echo, got %s", s.LastHandshake())
	}
}

func TestHandshakeEchoMatchesBeforeSenderCheck(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, func(f *fakeTransport) {
		echo, _ := protocol.EncodeWrite("s1", "v1", "5")
		f.deliver(protocol.MsgSettingsWrite, 0x99, echo)
	})
	if err := s.Register(&Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	if s.LastHandshake() != HandshakeMatched {
		t.Fatalf("expected matched, got %s", s.LastHandshake())
	}
	if n := len(tr.sentOfType(protocol.MsgSettingsReadResp)); n != 0 {
		t.Fatalf("foreign sender write must not be answered, got %d replies", n)
	}
}

func TestRegisterRejectsReentry(t *testing.T) {
	testlog.Start(t)
	var inner error
	var s *Settings
	s, _ = newTestSettings(t, func(f *fakeTransport) {
		if f.loops == 1 {
			inner = s.Register(&Setting{Section: "s2", Name: "x", Value: Int32Value(0)}, TypeInt)
		}
		echoRegistrations(f)
	})
	if err := s.Register(&Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !errors.Is(inner, ErrHandshakePending) {
		t.Fatalf("expected ErrHandshakePending, got %v", inner)
	}
	if _, ok := s.Lookup("s2", "x"); ok {
		t.Fatalf("rejected registration must not be linked")
	}
}

func TestRegisterUnknownType(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	err := s.Register(&Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}, TypeID(42))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if s.Registry().Len() != 0 || len(tr.sent) != 0 {
		t.Fatalf("unknown type must not link or send")
	}
}

func TestRegisterBoolCarriesEnumMetadata(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	if err := s.Register(&Setting{Section: "sys", Name: "enabled", Value: BoolValue(true)}, s.TypeBool()); err != nil {
		t.Fatalf("register: %v", err)
	}
	regs := tr.sentOfType(protocol.MsgSettingsRegister)
	if len(regs) != 1 {
		t.Fatalf("expected one register, got %d", len(regs))
	}
	want := []byte("sys\x00enabled\x00True\x00enum:False,True\x00")
	if !bytes.Equal(regs[0].payload, want) {
		t.Fatalf("unexpected payload: %q", regs[0].payload)
	}
	if s.LastHandshake() != HandshakeMatched {
		t.Fatalf("expected matched, got %s", s.LastHandshake())
	}
}

func TestRegisterOversizedPayloadReportsTruncation(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "s1", Name: "long", Value: StringValue(strings.Repeat("x", 300), 300)}
	err := s.Register(st, TypeString)
	if !errors.Is(err, protocol.ErrPayloadTruncated) {
		t.Fatalf("expected ErrPayloadTruncated, got %v", err)
	}
	if _, ok := s.Lookup("s1", "long"); !ok {
		t.Fatalf("setting must be linked even when the announcement does not fit")
	}
	if len(tr.sent) != 0 {
		t.Fatalf("truncated announcement must not be sent")
	}
}

func TestWriteAppliesValueAndReplies(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	payload, _ := protocol.EncodeWrite("s1", "v1", "42")
	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, payload)

	if Int32(st.Value) != 42 {
		t.Fatalf("expected stored 42, got %d", Int32(st.Value))
	}
	if len(tr.sent) != 1 || tr.sent[0].msgType != protocol.MsgSettingsReadResp {
		t.Fatalf("expected one read response, got %+v", tr.sent)
	}
	tokens := protocol.Tokenize(tr.sent[0].payload)
	if diff := cmp.Diff([]string{"s1", "v1", "42"}, tokens); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadOnlyStillReplies(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "sys", Name: "version", Value: Int32Value(3), Notify: ReadOnlyNotify}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	payload, _ := protocol.EncodeWrite("sys", "version", "9")
	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, payload)

	if Int32(st.Value) != 3 {
		t.Fatalf("read-only value changed to %d", Int32(st.Value))
	}
	resp := tr.sentOfType(protocol.MsgSettingsReadResp)
	if len(resp) != 1 {
		t.Fatalf("expected one read response, got %d", len(resp))
	}
	if got := protocol.Tokenize(resp[0].payload)[2]; got != "3" {
		t.Fatalf("expected unchanged value in reply, got %q", got)
	}
}

func TestWriteRejectedByNotifyDropsSilently(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	payload, _ := protocol.EncodeWrite("s1", "v1", "forty-two")
	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, payload)

	if Int32(st.Value) != 5 || len(tr.sent) != 0 {
		t.Fatalf("rejected write must not mutate or reply value=%d sent=%d", Int32(st.Value), len(tr.sent))
	}
}

func TestWriteCustomNotifyError(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	limit := func(st *Setting, value string) error {
		if value == "0" {
			return errors.New("zero not allowed")
		}
		return DefaultNotify(st, value)
	}
	st := &Setting{Section: "s1", Name: "rate", Value: Int16Value(10), Notify: limit}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	payload, _ := protocol.EncodeWrite("s1", "rate", "0")
	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, payload)
	if Int16(st.Value) != 10 || len(tr.sent) != 0 {
		t.Fatalf("notify error must drop the write")
	}
	payload, _ = protocol.EncodeWrite("s1", "rate", "20")
	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, payload)
	if Int16(st.Value) != 20 || len(tr.sent) != 1 {
		t.Fatalf("expected accepted write value=%d sent=%d", Int16(st.Value), len(tr.sent))
	}
}

func TestWriteEmptyValueClearsString(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "sys", Name: "label", Value: StringValue("rover", 16)}
	if err := s.Register(st, TypeString); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	tr.deliver(protocol.MsgSettingsWrite, protocol.HostSenderID, []byte("sys\x00label\x00\x00"))
	if text, _ := st.Text(); text != "" {
		t.Fatalf("expected empty string, got %q", text)
	}
	resp := tr.sentOfType(protocol.MsgSettingsReadResp)
	if len(resp) != 1 || !bytes.Equal(resp[0].payload, []byte("sys\x00label\x00\x00")) {
		t.Fatalf("unexpected reply: %+v", resp)
	}
}

func TestWriteDropsInvalidRequests(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	st := &Setting{Section: "s1", Name: "v1", Value: Int32Value(5)}
	if err := s.Register(st, TypeInt); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	cases := []struct {
		name    string
		sender  uint16
		payload []byte
	}{
		{"foreign sender", 0x99, []byte("s1\x00v1\x007\x00")},
		{"empty", protocol.HostSenderID, nil},
		{"unterminated", protocol.HostSenderID, []byte("s1\x00v1\x007")},
		{"missing value", protocol.HostSenderID, []byte("s1\x00v1\x00")},
		{"extra field", protocol.HostSenderID, []byte("s1\x00v1\x007\x00x\x00")},
		{"unknown setting", protocol.HostSenderID, []byte("s1\x00v2\x007\x00")},
	}
	for _, tc := range cases {
		tr.deliver(protocol.MsgSettingsWrite, tc.sender, tc.payload)
		if len(tr.sent) != 0 || Int32(st.Value) != 5 {
			t.Fatalf("%s: expected drop, sent=%d value=%d", tc.name, len(tr.sent), Int32(st.Value))
		}
	}
}

func TestReadReplies(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	mode, err := s.RegisterEnum("off", "auto", "manual")
	if err != nil {
		t.Fatalf("register enum: %v", err)
	}
	if err := s.Register(&Setting{Section: "fan", Name: "mode", Value: []byte{1}}, mode); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()

	tr.deliver(protocol.MsgSettingsReadReq, protocol.HostSenderID, []byte("fan\x00mode\x00"))
	resp := tr.sentOfType(protocol.MsgSettingsReadResp)
	if len(resp) != 1 {
		t.Fatalf("expected one read response, got %d", len(resp))
	}
	if !bytes.Equal(resp[0].payload, []byte("fan\x00mode\x00auto\x00enum:off,auto,manual\x00")) {
		t.Fatalf("unexpected payload: %q", resp[0].payload)
	}
}

type countingCodec struct {
	formats int
}

func (c *countingCodec) Format(blob []byte) (string, error) {
	c.formats++
	return string(blob), nil
}

func (c *countingCodec) Parse(blob []byte, text string) error {
	copy(blob, text)
	return nil
}

func TestReadMalformedNoLookupNoSend(t *testing.T) {
	testlog.Start(t)
	s, tr := newTestSettings(t, echoRegistrations)
	codec := &countingCodec{}
	id := s.RegisterType(codec)
	if err := s.Register(&Setting{Section: "s1", Name: "v1", Value: []byte("ab")}, id); err != nil {
		t.Fatalf("register: %v", err)
	}
	tr.reset()
	codec.formats = 0

	for _, payload := range [][]byte{
		[]byte("s1\x00v1"),
		[]byte("s1\x00v1\x00x"),
		[]byte("s1\x00v1\x00x\x00"),
		[]byte("s1\x00"),
		nil,
	} {
		tr.deliver(protocol.MsgSettingsReadReq, protocol.HostSenderID, payload)
	}
	tr.deliver(protocol.MsgSettingsReadReq, 0x99, []byte("s1\x00v1\x00"))
	tr.deliver(protocol.MsgSettingsReadReq, protocol.HostSenderID, []byte("s1\x00v9\x00"))

	if len(tr.sent) != 0 || codec.formats != 0 {
		t.Fatalf("expected no reply and no formatting, sent=%d formats=%d", len(tr.sent), codec.formats)
	}
}

func TestSnapshotAndDescribe(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestSettings(t, echoRegistrations)
	if err := s.Register(&Setting{Section: "imu", Name: "rate", Value: Float32Value(2.5)}, TypeFloat); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.Register(&Setting{Section: "imu", Name: "enabled", Value: BoolValue(false)}, s.TypeBool()); err != nil {
		t.Fatalf("register: %v", err)
	}
	want := []Entry{
		{Section: "imu", Name: "rate", Value: "2.5", Type: "float"},
		{Section: "imu", Name: "enabled", Value: "False", Type: "enum:False,True"},
	}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if _, ok := s.Describe("imu", "missing"); ok {
		t.Fatalf("unexpected describe hit")
	}
}

func TestFormatSettingNeverOverruns(t *testing.T) {
	testlog.Start(t)
	s, _ := newTestSettings(t, nil)
	st := &Setting{Section: "sec", Name: "name", Value: Int32Value(123456)}
	st.codec, _ = s.Types().Resolve(TypeInt)
	buf := make([]byte, 12)
	guard := append(buf, 0xEE)
	n, err := FormatSetting(st, guard[:12])
	if !errors.Is(err, protocol.ErrPayloadTruncated) {
		t.Fatalf("expected ErrPayloadTruncated, got %v", err)
	}
	if n != 12 || guard[12] != 0xEE {
		t.Fatalf("writer overran its buffer n=%d guard=0x%02x", n, guard[12])
	}
}
