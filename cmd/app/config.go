package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from environment variables before they are mapped
// onto config keys, e.g. MSIFC_CONTROLLERS_HTTP_ADDR -> controllers.http.addr.
const envPrefix = "MSIFC_"

type Config struct {
	DeviceID string `json:"device_id" yaml:"device_id"`

	Sidecar SidecarConfig `json:"sidecar" yaml:"sidecar"`

	Controllers struct {
		HTTP   HTTPConfig   `json:"http" yaml:"http"`
		MQTT   MQTTConfig   `json:"mqtt" yaml:"mqtt"`
		Modbus ModbusConfig `json:"modbus" yaml:"modbus"`
	} `json:"controllers" yaml:"controllers"`
}

type SidecarConfig struct {
	// Path to the privileged helper binary. Empty means "next to the
	// daemon binary".
	Path   string `json:"path" yaml:"path"`
	MockEC bool   `json:"mock_ec" yaml:"mock_ec"`

	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	RequestTimeout   time.Duration `json:"request_timeout" yaml:"request_timeout"`
	LockTimeout      time.Duration `json:"lock_timeout" yaml:"lock_timeout"`
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `json:"enabled" yaml:"enabled"`
	BrokerURL       string        `json:"broker_url" yaml:"broker_url"`
	ClientID        string        `json:"client_id" yaml:"client_id"`
	BaseTopic       string        `json:"base_topic" yaml:"base_topic"`
	QoS             byte          `json:"qos" yaml:"qos"`
	RetainStatus    bool          `json:"retain_status" yaml:"retain_status"`
	PublishInterval time.Duration `json:"publish_interval" yaml:"publish_interval"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
}

type ModbusConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	UnitID  byte   `json:"unit_id" yaml:"unit_id"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.DeviceID = "default"
	cfg.Sidecar.HandshakeTimeout = 5 * time.Second
	cfg.Sidecar.RequestTimeout = 3 * time.Second
	cfg.Sidecar.LockTimeout = 1 * time.Second
	cfg.Controllers.HTTP.Addr = ":8080"
	cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	cfg.Controllers.Modbus.Addr = "127.0.0.1:1502"
	cfg.Controllers.Modbus.UnitID = 1
	return cfg
}

// LoadConfig layers defaults, an optional yaml/json file, and MSIFC_*
// environment variables, highest last. A missing config file is not an
// error; a present but unparsable one is.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "json"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		}
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// Prefix only filters which variables load; it is still on
			// the key here and has to come off before mapping.
			return envKeyTransform(strings.TrimPrefix(key, envPrefix)), value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return kyaml.Parser(), nil
	case ".json":
		return kjson.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

func applyDefaults(cfg *Config) {
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled && !cfg.Controllers.Modbus.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	// PORT is common in containers; an explicit addr from env wins.
	if _, set := os.LookupEnv(envPrefix + "CONTROLLERS_HTTP_ADDR"); !set {
		if v := os.Getenv("PORT"); v != "" {
			cfg.Controllers.HTTP.Addr = ":" + v
		}
	}
}

// envKeyTransform maps an environment variable name, with the MSIFC_
// prefix removed by the caller, onto a dotted config key. Variables that
// do not carry enough parts for their section fall through unchanged,
// lowercased.
func envKeyTransform(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "_")
	switch parts[0] {
	case "controllers":
		if len(parts) >= 3 {
			return parts[0] + "." + parts[1] + "." + strings.Join(parts[2:], "_")
		}
	case "sidecar":
		if len(parts) >= 2 {
			return parts[0] + "." + strings.Join(parts[1:], "_")
		}
	}
	return s
}
