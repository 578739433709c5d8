// Package config holds process settings and the broker's routing
// configuration document.
//
// Settings are read from the environment (TELEMESH_* variables, with a
// best-effort .env file for development). RouterConfig builds the JSON
// configuration document the router daemon is launched with.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings configures the transport and the broker supervisor.
type Settings struct {
	ListenAddrs []string `env:"TELEMESH_LISTEN_ADDRS" envSeparator:","`
	Bootstrap   []string `env:"TELEMESH_BOOTSTRAP" envSeparator:","`
	Rendezvous  string   `env:"TELEMESH_RENDEZVOUS" envDefault:"telemesh"`
	EnableMDNS  bool     `env:"TELEMESH_MDNS" envDefault:"true"`
	IdentityKey string   `env:"TELEMESH_IDENTITY_KEY"`

	BrokerExecutable string        `env:"TELEMESH_BROKER_BIN" envDefault:"meshrouterd"`
	BrokerConfigPath string        `env:"TELEMESH_BROKER_CONFIG" envDefault:"/etc/meshrouter/router.json"`
	BrokerGrace      time.Duration `env:"TELEMESH_BROKER_GRACE" envDefault:"3s"`
	BrokerSettle     time.Duration `env:"TELEMESH_BROKER_SETTLE" envDefault:"1s"`
}

// Load reads Settings from the environment. A missing .env file is fine.
func Load() (Settings, error) {
	_ = godotenv.Load()
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}
