package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress     string `toml:"RPCAddress"`
	GatewayAddress string `toml:"GatewayAddress"`
	DataDir        string `toml:"DataDir"`
	ServiceName    string `toml:"ServiceName"`
	LogLevel       string `toml:"LogLevel"`

	// AdminAddress seeds the administrative owner on a fresh store. The
	// Marketplace address holds unsold inventory; the Payee receives sale
	// proceeds and staked value. All three are 0x-prefixed hex.
	AdminAddress       string `toml:"AdminAddress"`
	MarketplaceAddress string `toml:"MarketplaceAddress"`
	PayeeAddress       string `toml:"PayeeAddress"`

	// RPCToken guards admin JSON-RPC methods; AuthSecret signs gateway JWTs.
	RPCToken   string `toml:"RPCToken"`
	AuthSecret string `toml:"AuthSecret"`
}

// Load reads the configuration from path, writing a default file first when
// none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s contains unknown keys: %s", path, strings.Join(keys, ", "))
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8545"
	}
	if strings.TrimSpace(cfg.GatewayAddress) == "" {
		cfg.GatewayAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./artgrid-data"
	}
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "artgridd"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the address fields that the node cannot start without.
func (c *Config) Validate() error {
	for field, value := range map[string]string{
		"AdminAddress":       c.AdminAddress,
		"MarketplaceAddress": c.MarketplaceAddress,
		"PayeeAddress":       c.PayeeAddress,
	} {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	return nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return addr, fmt.Errorf("address required")
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
	if err != nil {
		return addr, fmt.Errorf("invalid hex address %q", raw)
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("address must be %d bytes", len(addr))
	}
	copy(addr[:], decoded)
	return addr, nil
}

// createDefault writes a commented starter file. The address fields are left
// empty on purpose so the operator fills them in before first start.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
