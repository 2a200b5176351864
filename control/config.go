// File: control/config.go
//
// Client configuration: file plus environment, merged by viper. Environment
// variables use the CALYX_ prefix with underscores for nesting, for example
// CALYX_TLS_PINNED_FINGERPRINT.

// Package control holds the operational surface around the transport layer:
// configuration loading and logger construction. Nothing here touches a
// socket; it only produces the values the transport constructors consume.
package control

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/calyxdb/calyx-wire/api"
	"github.com/calyxdb/calyx-wire/transport"
)

// Config is the full client configuration.
type Config struct {
	// Address is the server endpoint, "host:port".
	Address string `mapstructure:"address"`

	// Secure selects the TLS transport variant.
	Secure bool `mapstructure:"secure"`

	TLS TLSConfig `mapstructure:"tls"`
	Log LogConfig `mapstructure:"log"`
}

// TLSConfig is the material for the secure variant.
type TLSConfig struct {
	// ServerName is the name verified against the server certificate.
	ServerName string `mapstructure:"server_name"`

	// RootCAFile points at a PEM bundle of trusted roots. Empty uses the
	// system pool.
	RootCAFile string `mapstructure:"root_ca_file"`

	// CertFile and KeyFile optionally present a client certificate.
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	// PinnedFingerprint, when set, replaces chain verification with an
	// exact match against the server's public-key fingerprint (hex
	// SHA-256 of the SubjectPublicKeyInfo).
	PinnedFingerprint string `mapstructure:"pinned_fingerprint"`
}

// LogConfig tunes the client logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Console enables human-readable output on stderr.
	Console bool `mapstructure:"console"`

	// File enables JSON output to a rotated file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from path (any format viper understands) merged
// with CALYX_-prefixed environment variables. An empty path skips the file
// and uses defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("calyx")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key gets a default so AutomaticEnv can bind it even when no
	// config file mentions it.
	v.SetDefault("address", "127.0.0.1:9042")
	v.SetDefault("secure", false)
	v.SetDefault("tls.server_name", "")
	v.SetDefault("tls.root_ca_file", "")
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.pinned_fingerprint", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", false)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// ClientTLS turns the TLS section into transport material. A pinned
// fingerprint switches verification from the certificate chain to an exact
// public-key match, which is how deployments with self-signed server
// certificates stay safe.
func (c *Config) ClientTLS() (*transport.ClientTLS, error) {
	out := &transport.ClientTLS{ServerName: c.TLS.ServerName}

	if c.TLS.RootCAFile != "" {
		pem, err := os.ReadFile(c.TLS.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("read root CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", c.TLS.RootCAFile)
		}
		out.RootCAs = pool
	}

	if c.TLS.CertFile != "" || c.TLS.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.TLS.CertFile, c.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}

	if pin := strings.ToLower(c.TLS.PinnedFingerprint); pin != "" {
		out.InsecureSkipVerify = true
		out.VerifyPeer = func(id api.Identity) error {
			if id.Fingerprint != pin {
				return fmt.Errorf("server fingerprint %s does not match pinned %s", id.Fingerprint, pin)
			}
			return nil
		}
	}
	return out, nil
}
