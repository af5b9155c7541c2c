// Package config loads bot settings from NTLINK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ZentaChain/ntlink/pkg/protocol"
)

const Prefix = "NTLINK_"

// Config holds everything needed to run one bot context
type Config struct {
	Address       string            `env:"ADDRESS"        envDefault:"msfwifi.3g.qq.com:8080"`
	Protocol      protocol.Protocol `env:"PROTOCOL"       envDefault:"linux"`
	AutoReconnect bool              `env:"AUTO_RECONNECT" envDefault:"true"`
	AutoReLogin   bool              `env:"AUTO_RELOGIN"   envDefault:"true"`

	// SignURL empty means the public endpoint for the client version
	SignURL string `env:"SIGN_URL"`

	Uin        int64  `env:"UIN"`
	Password   string `env:"PASSWORD,unset"`
	DeviceName string `env:"DEVICE_NAME" envDefault:"ntlink"`

	// KeystorePath is a JSON document; when empty the keystore lives in
	// the database
	KeystorePath string `env:"KEYSTORE_PATH"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"ntlink.db"`

	// KeystorePassphrase, when set, encrypts saved tickets
	KeystorePassphrase string `env:"KEYSTORE_PASSPHRASE,unset"`

	StatusAddr string `env:"STATUS_ADDR" envDefault:"127.0.0.1:9180"`

	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT"    envDefault:"15s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"270s"`
	QRPollInterval    time.Duration `env:"QR_POLL_INTERVAL"   envDefault:"2s"`
	JournalTTL        time.Duration `env:"JOURNAL_TTL"        envDefault:"720h"`
}

var protocolType = reflect.TypeOf(protocol.Protocol(0))

func parseProtocol(v string) (any, error) {
	return protocol.ParseProtocol(v)
}

// Load reads the process environment
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads vars instead of the process environment. Keys carry the
// prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	opts.FuncMap = map[reflect.Type]env.ParserFunc{protocolType: parseProtocol}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no bot can run with
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address is required"))
	}
	if c.Uin < 0 {
		errs = append(errs, fmt.Errorf("invalid uin %d", c.Uin))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.HeartbeatInterval <= 0 {
		errs = append(errs, errors.New("heartbeat interval must be positive"))
	}
	if c.QRPollInterval <= 0 {
		errs = append(errs, errors.New("qr poll interval must be positive"))
	}
	if c.KeystorePath == "" && c.DatabasePath == "" {
		errs = append(errs, errors.New("either a keystore path or a database path is required"))
	}
	return errors.Join(errs...)
}
