package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAddr      = "chat.deviantart.com:3900"
	DefaultAgent     = "marsipan"
	DefaultAdminAddr = "127.0.0.1:9300"

	EnvUsername = "MARSIPAN_USERNAME"
	EnvToken    = "MARSIPAN_PK"
	EnvAddr     = "MARSIPAN_ADDR"
	EnvStoreDSN = "MARSIPAN_STORE_DSN"
	EnvAdminKey = "MARSIPAN_ADMIN_TOKEN"
)

// BridgeConfig is the identity and wiring of one bot connection.
type BridgeConfig struct {
	Username    string   `toml:"username"`
	Token       string   `toml:"token"`
	Addr        string   `toml:"addr"`
	Agent       string   `toml:"agent"`
	Rooms       []string `toml:"rooms"`
	StoreDSN    string   `toml:"store_dsn"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
}

// LoadBridgeConfig reads path, applies MARSIPAN_* environment overrides and
// fills defaults. The auth token usually arrives through the environment so
// it never has to live in the TOML file.
func LoadBridgeConfig(path string) (BridgeConfig, error) {
	var cfg BridgeConfig
	if err := loadToml(path, &cfg); err != nil {
		return BridgeConfig{}, err
	}
	applyEnv(&cfg)
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = DefaultAddr
	}
	if strings.TrimSpace(cfg.Agent) == "" {
		cfg.Agent = DefaultAgent
	}
	if strings.TrimSpace(cfg.AdminAddr) == "" {
		cfg.AdminAddr = DefaultAdminAddr
	}
	if err := ValidateBridgeConfig(cfg); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("env load failed (%s): %w", path, err)
		}
	}
	return nil
}

func applyEnv(cfg *BridgeConfig) {
	if v, ok := os.LookupEnv(EnvUsername); ok {
		cfg.Username = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvToken); ok {
		cfg.Token = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvAddr); ok {
		cfg.Addr = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvStoreDSN); ok {
		cfg.StoreDSN = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvAdminKey); ok {
		cfg.AdminToken = strings.TrimSpace(v)
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateBridgeConfig(cfg BridgeConfig) error {
	if strings.TrimSpace(cfg.Username) == "" {
		return fmt.Errorf("bridge config missing username")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return fmt.Errorf("bridge config missing token (set %s)", EnvToken)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("bridge config missing addr")
	}
	if !strings.Contains(cfg.Addr, ":") {
		return fmt.Errorf("bridge config addr must be host:port: %q", cfg.Addr)
	}
	if len(cfg.Rooms) == 0 {
		return fmt.Errorf("bridge config needs at least one room")
	}
	for i, room := range cfg.Rooms {
		if err := ValidateRoom(room); err != nil {
			return fmt.Errorf("rooms[%d] invalid: %w", i, err)
		}
	}
	return nil
}

func ValidateRoom(room string) error {
	name := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(room), "chat:"), "#")
	if name == "" {
		return fmt.Errorf("room name is required")
	}
	if strings.ContainsAny(name, " \n\x00") {
		return fmt.Errorf("room name has invalid characters: %q", room)
	}
	return nil
}
