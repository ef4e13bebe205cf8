package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	LinkSerial = "serial"
	LinkTCP    = "tcp"
)

// Setting type names accepted in [[settings]] entries.
const (
	TypeString = "string"
	TypeFloat  = "float"
	TypeInt    = "int"
	TypeBool   = "bool"
	TypeEnum   = "enum"
)

type LinkConfig struct {
	Kind               string        `toml:"kind"`
	Port               string        `toml:"port,omitempty"`
	Baud               int           `toml:"baud,omitempty"`
	Addr               string        `toml:"addr,omitempty"`
	DialTimeout        time.Duration `toml:"-"`
	MaxConnectAttempts int           `toml:"max_connect_attempts"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins,omitempty"`
	Token       string   `toml:"token,omitempty"`
}

// SettingConfig declares one setting the daemon registers at startup.
type SettingConfig struct {
	Section  string   `toml:"section"`
	Name     string   `toml:"name"`
	Type     string   `toml:"type"`
	Size     int      `toml:"size,omitempty"`
	Value    string   `toml:"value"`
	ReadOnly bool     `toml:"read_only,omitempty"`
	Enum     []string `toml:"enum,omitempty"`
}

type DaemonConfig struct {
	ID                string          `toml:"id"`
	SenderID          uint16          `toml:"sender_id"`
	HostSenderID      uint16          `toml:"host_sender_id"`
	LogLevel          string          `toml:"log_level"`
	HeartbeatInterval time.Duration   `toml:"-"`
	Link              LinkConfig      `toml:"link"`
	Admin             AdminConfig     `toml:"admin"`
	Settings          []SettingConfig `toml:"settings"`
}

func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		ID:                "settingsd",
		SenderID:          0,
		HostSenderID:      0x42,
		LogLevel:          "info",
		HeartbeatInterval: 30 * time.Second,
		Link: LinkConfig{
			Kind:               LinkSerial,
			Port:               "/dev/ttyUSB0",
			Baud:               115200,
			DialTimeout:        5 * time.Second,
			MaxConnectAttempts: 5,
		},
		Admin:    AdminConfig{Addr: ""},
		Settings: []SettingConfig{},
	}
}

type fileConfig struct {
	ID                  string          `toml:"id"`
	SenderID            uint16          `toml:"sender_id"`
	HostSenderID        uint16          `toml:"host_sender_id"`
	LogLevel            string          `toml:"log_level,omitempty"`
	Heartbeat           string          `toml:"heartbeat,omitempty"`
	HeartbeatIntervalMS int64           `toml:"heartbeat_interval_ms,omitempty"`
	Link                fileLinkConfig  `toml:"link"`
	Admin               AdminConfig     `toml:"admin"`
	Settings            []SettingConfig `toml:"settings"`
}

type fileLinkConfig struct {
	Kind               string `toml:"kind"`
	Port               string `toml:"port,omitempty"`
	Baud               int    `toml:"baud,omitempty"`
	Addr               string `toml:"addr,omitempty"`
	DialTimeout        string `toml:"dial_timeout,omitempty"`
	MaxConnectAttempts int    `toml:"max_connect_attempts,omitempty"`
}

// LoadDaemonConfig overlays the keys present in path onto DefaultDaemonConfig
// and validates the result.
func LoadDaemonConfig(path string) (DaemonConfig, error) {
	cfg := DefaultDaemonConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return DaemonConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return DaemonConfig{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("sender_id") {
		cfg.SenderID = raw.SenderID
	}
	if meta.IsDefined("host_sender_id") {
		cfg.HostSenderID = raw.HostSenderID
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("heartbeat") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Heartbeat))
		if err != nil {
			return DaemonConfig{}, fmt.Errorf("parse heartbeat: %w", err)
		}
		cfg.HeartbeatInterval = d
	}
	if meta.IsDefined("heartbeat_interval_ms") {
		cfg.HeartbeatInterval = time.Duration(raw.HeartbeatIntervalMS) * time.Millisecond
	}

	if meta.IsDefined("link", "kind") {
		cfg.Link.Kind = strings.ToLower(strings.TrimSpace(raw.Link.Kind))
	}
	if meta.IsDefined("link", "port") {
		cfg.Link.Port = strings.TrimSpace(raw.Link.Port)
	}
	if meta.IsDefined("link", "baud") {
		cfg.Link.Baud = raw.Link.Baud
	}
	if meta.IsDefined("link", "addr") {
		cfg.Link.Addr = strings.TrimSpace(raw.Link.Addr)
	}
	if meta.IsDefined("link", "dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Link.DialTimeout))
		if err != nil {
			return DaemonConfig{}, fmt.Errorf("parse link.dial_timeout: %w", err)
		}
		cfg.Link.DialTimeout = d
	}
	if meta.IsDefined("link", "max_connect_attempts") {
		cfg.Link.MaxConnectAttempts = raw.Link.MaxConnectAttempts
	}
	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CORSOrigins = raw.Admin.CORSOrigins
	}
	if meta.IsDefined("admin", "token") {
		cfg.Admin.Token = strings.TrimSpace(raw.Admin.Token)
	}
	if meta.IsDefined("settings") {
		cfg.Settings = normalizeSettings(raw.Settings)
	}

	if err := ValidateDaemonConfig(cfg); err != nil {
		return DaemonConfig{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func normalizeSettings(in []SettingConfig) []SettingConfig {
	out := make([]SettingConfig, 0, len(in))
	for _, s := range in {
		s.Section = strings.TrimSpace(s.Section)
		s.Name = strings.TrimSpace(s.Name)
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		if s.Size == 0 {
			s.Size = DefaultSize(s.Type)
		}
		out = append(out, s)
	}
	return out
}

// DefaultSize is the backing width used when a setting omits size.
func DefaultSize(typ string) int {
	switch typ {
	case TypeInt, TypeFloat:
		return 4
	case TypeString:
		return 64
	case TypeBool, TypeEnum:
		return 1
	default:
		return 0
	}
}

func ValidateDaemonConfig(cfg DaemonConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("daemon config missing id")
	}
	if cfg.HeartbeatInterval <= 0 {
		return fmt.Errorf("daemon config heartbeat must be positive")
	}
	if err := ValidateLink(cfg.Link); err != nil {
		return fmt.Errorf("link invalid: %w", err)
	}
	seen := make(map[string]struct{}, len(cfg.Settings))
	for i, s := range cfg.Settings {
		if err := ValidateSettingEntry(s); err != nil {
			return fmt.Errorf("settings[%d] invalid: %w", i, err)
		}
		key := s.Section + "." + s.Name
		if _, ok := seen[key]; ok {
			return fmt.Errorf("settings[%d] duplicates %s", i, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func ValidateLink(cfg LinkConfig) error {
	switch cfg.Kind {
	case LinkSerial:
		if strings.TrimSpace(cfg.Port) == "" {
			return fmt.Errorf("port is required for serial links")
		}
		if cfg.Baud <= 0 {
			return fmt.Errorf("baud must be positive")
		}
	case LinkTCP:
		if strings.TrimSpace(cfg.Addr) == "" {
			return fmt.Errorf("addr is required for tcp links")
		}
	default:
		return fmt.Errorf("unknown link kind %q", cfg.Kind)
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("max_connect_attempts must not be negative")
	}
	return nil
}

func ValidateSettingEntry(s SettingConfig) error {
	if s.Section == "" || s.Name == "" {
		return fmt.Errorf("section and name are required")
	}
	if strings.ContainsRune(s.Section, 0) || strings.ContainsRune(s.Name, 0) {
		return fmt.Errorf("section and name must not contain NUL")
	}
	switch s.Type {
	case TypeInt:
		if s.Size != 1 && s.Size != 2 && s.Size != 4 {
			return fmt.Errorf("int size must be 1, 2 or 4")
		}
	case TypeFloat:
		if s.Size != 4 && s.Size != 8 {
			return fmt.Errorf("float size must be 4 or 8")
		}
	case TypeString:
		if s.Size <= 0 {
			return fmt.Errorf("string size must be positive")
		}
	case TypeBool:
		if s.Size != 1 {
			return fmt.Errorf("bool size must be 1")
		}
	case TypeEnum:
		if s.Size != 1 {
			return fmt.Errorf("enum size must be 1")
		}
		if len(s.Enum) == 0 {
			return fmt.Errorf("enum requires names")
		}
	default:
		return fmt.Errorf("unknown type %q", s.Type)
	}
	if s.Type != TypeEnum && len(s.Enum) > 0 {
		return fmt.Errorf("enum names only apply to enum settings")
	}
	return nil
}
