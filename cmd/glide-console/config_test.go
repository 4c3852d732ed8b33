package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wippyai/glide-ffi/client"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := loadSettings(nil, "")
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Host != "localhost" || s.Port != 6379 || s.Timeout != time.Second || s.LogLevel != "warn" {
		t.Fatalf("defaults = %+v", s)
	}
}

func TestLoadSettings_Layering(t *testing.T) {
	path := writeConfig(t, "host: filehost\nport: 7000\ncluster: true\nlog:\n  level: debug\n")
	t.Setenv("GLIDE_PORT", "7001")
	t.Setenv("GLIDE_LOG_FILE", "/tmp/console.log")

	flags := newRootCmd().PersistentFlags()
	if err := flags.Parse([]string{"--host", "flaghost", "--timeout", "3s"}); err != nil {
		t.Fatal(err)
	}

	s, err := loadSettings(flags, path)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	tests := []struct {
		name      string
		got, want any
	}{
		{"flag beats file", s.Host, "flaghost"},
		{"env beats file", s.Port, 7001},
		{"file beats default", s.Cluster, true},
		{"nested file key", s.LogLevel, "debug"},
		{"env only", s.LogFile, "/tmp/console.log"},
		{"flag only", s.Timeout, 3 * time.Second},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadSettings_UnchangedFlagsKeepFile(t *testing.T) {
	path := writeConfig(t, "host: filehost\n")
	flags := newRootCmd().PersistentFlags()
	if err := flags.Parse(nil); err != nil {
		t.Fatal(err)
	}
	s, err := loadSettings(flags, path)
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if s.Host != "filehost" {
		t.Fatalf("host = %q", s.Host)
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	if _, err := loadSettings(nil, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
	path := writeConfig(t, "port: 70000\n")
	if _, err := loadSettings(nil, path); err == nil {
		t.Error("expected error for out of range port")
	}
}

func TestSettings_ClientConfig(t *testing.T) {
	tests := []struct {
		name     string
		s        settings
		tls      client.TLSMode
		protocol client.Protocol
	}{
		{"plain", settings{}, client.NoTLS, client.RESP3},
		{"tls", settings{TLS: true}, client.SecureTLS, client.RESP3},
		{"insecure", settings{TLS: true, Insecure: true}, client.InsecureTLS, client.RESP3},
		{"insecure without tls", settings{Insecure: true}, client.NoTLS, client.RESP3},
		{"resp2", settings{RESP2: true}, client.NoTLS, client.RESP2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.s.Host, tt.s.Port = "h", 1
			cfg := tt.s.clientConfig()
			if cfg.TLS != tt.tls || cfg.Protocol != tt.protocol {
				t.Fatalf("tls=%v protocol=%v", cfg.TLS, cfg.Protocol)
			}
			if len(cfg.Addresses) != 1 || cfg.Addresses[0].Host != "h" || cfg.Addresses[0].Port != 1 {
				t.Fatalf("addresses = %+v", cfg.Addresses)
			}
		})
	}
}
