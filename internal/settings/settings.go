package settings

import (
	"fmt"

	logs "github.com/danmuck/fwsettings/internal/logging"
	"github.com/danmuck/fwsettings/internal/observability"
	"github.com/danmuck/fwsettings/internal/protocol"
	"github.com/danmuck/fwsettings/internal/transport"
)

// BoolNames are the names the bool enum publishes, index 0 first.
var BoolNames = []string{"False", "True"}

// Config holds the per-link settings parameters.
type Config struct {
	// HostSenderID is the only sender accepted for write and read requests.
	HostSenderID uint16
}

func DefaultConfig() Config {
	return Config{HostSenderID: protocol.HostSenderID}
}

// Settings owns the type registry, the settings registry and the handshake
// state for one transport.
type Settings struct {
	cfg      Config
	tr       transport.Transport
	types    *TypeRegistry
	registry *Registry
	hs       handshake
	typeBool TypeID
	reply    [protocol.MaxPayload]byte
}

// New registers the bool type and binds the write and read handlers to tr.
func New(tr transport.Transport, cfg Config) (*Settings, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}
	s := &Settings{
		cfg:      cfg,
		tr:       tr,
		types:    NewTypeRegistry(),
		registry: NewRegistry(),
	}
	boolCodec, err := NewEnumCodec(BoolNames...)
	if err != nil {
		return nil, err
	}
	s.typeBool = s.types.RegisterType(boolCodec)

	if err := tr.RegisterCallback(protocol.MsgSettingsWrite, s.handleWrite); err != nil {
		return nil, fmt.Errorf("settings: register write callback: %w", err)
	}
	if err := tr.RegisterCallback(protocol.MsgSettingsReadReq, s.handleRead); err != nil {
		return nil, fmt.Errorf("settings: register read callback: %w", err)
	}
	return s, nil
}

// TypeBool is the runtime index of the bool type.
func (s *Settings) TypeBool() TypeID { return s.typeBool }

func (s *Settings) Types() *TypeRegistry { return s.types }

func (s *Settings) Registry() *Registry { return s.registry }

// RegisterType appends a caller codec and returns its index.
func (s *Settings) RegisterType(c Codec) TypeID {
	return s.types.RegisterType(c)
}

// RegisterEnum appends an enum type over names.
func (s *Settings) RegisterEnum(names ...string) (TypeID, error) {
	c, err := NewEnumCodec(names...)
	if err != nil {
		return 0, err
	}
	return s.types.RegisterType(c), nil
}

// LastHandshake reports how the most recent registration resolved.
func (s *Settings) LastHandshake() HandshakeState {
	return s.hs.last
}

// Register links setting into the registry and announces it to the host,
// blocking in the transport loop until the host echoes it back or the
// attempts run out. An unacknowledged registration is logged, not returned:
// the setting stays registered and reachable.
func (s *Settings) Register(setting *Setting, typeID TypeID) error {
	if setting == nil {
		return ErrNilSetting
	}
	if s.hs.state == HandshakePending {
		return fmt.Errorf("%w: %s.%s", ErrHandshakePending, setting.Section, setting.Name)
	}
	codec, err := s.types.Resolve(typeID)
	if err != nil {
		return fmt.Errorf("settings: register %s.%s: %w", setting.Section, setting.Name, err)
	}
	setting.codec = codec
	setting.typeID = typeID
	if setting.Notify == nil {
		setting.Notify = DefaultNotify
	}
	s.registry.Insert(setting)

	n, err := FormatSetting(setting, s.hs.msg[:])
	if err != nil {
		logs.Errf("settings.Register format section=%q name=%q err=%v", setting.Section, setting.Name, err)
		return fmt.Errorf("settings: register %s.%s: %w", setting.Section, setting.Name, err)
	}
	s.hs.begin(n, echoPrefixLen(setting))
	outcome := s.hs.run(s.tr)
	observability.RecordHandshake(outcome.String(), s.hs.attempts)

	if outcome != HandshakeMatched {
		logs.Errf(
			"settings.Register section=%q name=%q attempts=%d err=%v",
			setting.Section, setting.Name, s.hs.attempts, ErrRegistrationTimeout,
		)
		return nil
	}
	logs.Debugf("settings.Register acknowledged section=%q name=%q attempts=%d", setting.Section, setting.Name, s.hs.attempts)
	return nil
}

// Lookup finds a registered setting by exact section and name.
func (s *Settings) Lookup(section, name string) (*Setting, bool) {
	return s.registry.Lookup(section, name)
}

// Entry is a rendered view of one setting.
type Entry struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Error   string `json:"error,omitempty"`
}

func (s *Settings) entry(st *Setting) Entry {
	e := Entry{Section: st.Section, Name: st.Name, Type: s.types.Describe(st.typeID)}
	text, err := st.Text()
	if err != nil {
		e.Error = err.Error()
		return e
	}
	e.Value = text
	return e
}

// Snapshot renders every setting in registry order.
func (s *Settings) Snapshot() []Entry {
	all := s.registry.All()
	out := make([]Entry, 0, len(all))
	for _, st := range all {
		out = append(out, s.entry(st))
	}
	return out
}

// Describe renders a single setting.
func (s *Settings) Describe(section, name string) (Entry, bool) {
	st, ok := s.registry.Lookup(section, name)
	if !ok {
		return Entry{}, false
	}
	return s.entry(st), true
}
