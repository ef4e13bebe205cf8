package config

import (
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Template renders an example daemon config for the given link kind.
func Template(kind string) (string, error) {
	var link fileLinkConfig
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case LinkSerial:
		link = fileLinkConfig{Kind: LinkSerial, Port: "/dev/ttyUSB0", Baud: 115200, MaxConnectAttempts: 5}
	case LinkTCP:
		link = fileLinkConfig{Kind: LinkTCP, Addr: "localhost:5760", DialTimeout: "5s", MaxConnectAttempts: 5}
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}

	example := fileConfig{
		ID:           "settingsd",
		SenderID:     0,
		HostSenderID: 0x42,
		LogLevel:     "info",
		Heartbeat:    "30s",
		Link:         link,
		Admin:        AdminConfig{Addr: "127.0.0.1:8088", CORSOrigins: []string{"http://localhost:3000"}},
		Settings: []SettingConfig{
			{Section: "system", Name: "name", Type: TypeString, Size: 32, Value: "fw-node", ReadOnly: true},
			{Section: "control", Name: "gain", Type: TypeFloat, Size: 4, Value: "1.5"},
			{Section: "control", Name: "limit", Type: TypeInt, Size: 2, Value: "120"},
			{Section: "control", Name: "enabled", Type: TypeBool, Value: "True"},
			{Section: "radio", Name: "mode", Type: TypeEnum, Value: "auto", Enum: []string{"off", "auto", "manual"}},
		},
	}
	out, err := toml.Marshal(example)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", kind, err)
	}
	return string(out), nil
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
