package daemon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/fwsettings/internal/config"
	"github.com/danmuck/fwsettings/internal/settings"
)

var ErrUnsupportedType = errors.New("daemon: unsupported setting type")

// declarer turns config entries into registered settings. Enum name lists
// that repeat share one registered type.
type declarer struct {
	s     *settings.Settings
	enums map[string]settings.TypeID
}

func newDeclarer(s *settings.Settings) *declarer {
	return &declarer{s: s, enums: make(map[string]settings.TypeID)}
}

func (d *declarer) typeFor(sc config.SettingConfig) (settings.TypeID, error) {
	switch sc.Type {
	case config.TypeString:
		return settings.TypeString, nil
	case config.TypeFloat:
		return settings.TypeFloat, nil
	case config.TypeInt:
		return settings.TypeInt, nil
	case config.TypeBool:
		return d.s.TypeBool(), nil
	case config.TypeEnum:
		key := strings.Join(sc.Enum, "\x00")
		if id, ok := d.enums[key]; ok {
			return id, nil
		}
		id, err := d.s.RegisterEnum(sc.Enum...)
		if err != nil {
			return 0, err
		}
		d.enums[key] = id
		return id, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, sc.Type)
	}
}

// build allocates backing storage and applies the initial value.
func (d *declarer) build(sc config.SettingConfig) (*settings.Setting, settings.TypeID, error) {
	typeID, err := d.typeFor(sc)
	if err != nil {
		return nil, 0, err
	}
	size := sc.Size
	if size == 0 {
		size = config.DefaultSize(sc.Type)
	}
	st := &settings.Setting{
		Section: sc.Section,
		Name:    sc.Name,
		Value:   make([]byte, size),
	}
	if sc.ReadOnly {
		st.Notify = settings.ReadOnlyNotify
	}
	if sc.Value != "" {
		codec, err := d.s.Types().Resolve(typeID)
		if err != nil {
			return nil, 0, err
		}
		if err := codec.Parse(st.Value, sc.Value); err != nil {
			return nil, 0, fmt.Errorf("initial value %q: %w", sc.Value, err)
		}
	}
	return st, typeID, nil
}

// Declare registers every configured setting in order, stopping at the first
// entry that cannot be built or linked.
func (d *declarer) Declare(entries []config.SettingConfig) ([]*settings.Setting, error) {
	out := make([]*settings.Setting, 0, len(entries))
	for _, sc := range entries {
		st, typeID, err := d.build(sc)
		if err != nil {
			return out, fmt.Errorf("declare %s.%s: %w", sc.Section, sc.Name, err)
		}
		if err := d.s.Register(st, typeID); err != nil {
			return out, fmt.Errorf("declare %s.%s: %w", sc.Section, sc.Name, err)
		}
		out = append(out, st)
	}
	return out, nil
}
