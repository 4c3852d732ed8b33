package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"

	"github.com/wippyai/glide-ffi/client"
	"github.com/wippyai/glide-ffi/logging"
)

const envPrefix = "GLIDE_"

// settings is the console configuration after layering defaults, the YAML
// file, GLIDE_* variables and flags, in that order.
type settings struct {
	Host     string
	Port     int
	Cluster  bool
	TLS      bool
	Insecure bool
	RESP2    bool
	Username string
	Password string
	Database int
	Timeout  time.Duration
	LogLevel string
	LogFile  string
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"host":      client.DefaultHost,
		"port":      client.DefaultPort,
		"cluster":   false,
		"tls":       false,
		"insecure":  false,
		"resp2":     false,
		"username":  "",
		"password":  "",
		"database":  0,
		"timeout":   "1s",
		"log.level": "warn",
		"log.file":  "",
	}
}

// flagKeys maps flag names onto config keys. Flags missing here keep
// their name.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-file":  "log.file",
	"config":    "",
}

var envKeys = map[string]string{
	"HOST":      "host",
	"PORT":      "port",
	"CLUSTER":   "cluster",
	"TLS":       "tls",
	"INSECURE":  "insecure",
	"RESP2":     "resp2",
	"USERNAME":  "username",
	"PASSWORD":  "password",
	"DATABASE":  "database",
	"TIMEOUT":   "timeout",
	"LOG_LEVEL": "log.level",
	"LOG_FILE":  "log.file",
}

func loadSettings(flags *pflag.FlagSet, configPath string) (settings, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return settings{}, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return settings{}, fmt.Errorf("error reading config %s: %w", configPath, err)
		}
	}

	envOpts := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		return envKeys[strings.TrimPrefix(key, envPrefix)], value
	})
	if err := k.Load(envOpts, nil); err != nil {
		return settings{}, fmt.Errorf("error loading env: %w", err)
	}

	if flags != nil {
		flagOpts := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, interface{}) {
			if mapped, ok := flagKeys[key]; ok {
				return mapped, value
			}
			return key, value
		})
		if err := k.Load(flagOpts, nil); err != nil {
			return settings{}, fmt.Errorf("error loading flags: %w", err)
		}
	}

	s := settings{
		Host:     k.String("host"),
		Port:     k.Int("port"),
		Cluster:  k.Bool("cluster"),
		TLS:      k.Bool("tls"),
		Insecure: k.Bool("insecure"),
		RESP2:    k.Bool("resp2"),
		Username: k.String("username"),
		Password: k.String("password"),
		Database: k.Int("database"),
		Timeout:  k.Duration("timeout"),
		LogLevel: k.String("log.level"),
		LogFile:  k.String("log.file"),
	}
	if s.Port <= 0 || s.Port > 65535 {
		return settings{}, fmt.Errorf("port %d out of range", s.Port)
	}
	return s, nil
}

func (s settings) clientConfig() client.Config {
	cfg := client.Config{
		Addresses:         []client.NodeAddress{{Host: s.Host, Port: uint16(s.Port)}},
		Username:          s.Username,
		Password:          s.Password,
		ClientName:        "glide-console",
		DatabaseID:        uint32(s.Database),
		Cluster:           s.Cluster,
		RequestTimeout:    s.Timeout,
		ConnectionTimeout: s.Timeout,
	}
	switch {
	case s.TLS && s.Insecure:
		cfg.TLS = client.InsecureTLS
	case s.TLS:
		cfg.TLS = client.SecureTLS
	}
	if s.RESP2 {
		cfg.Protocol = client.RESP2
	}
	return cfg
}

func (s settings) initLogging() error {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	_, err = logging.Init(level, s.LogFile)
	return err
}
