package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "bridge":
		return bridgeTemplate, nil
	case "env":
		return envTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
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

const bridgeTemplate = `username = "marsipan"
addr = "chat.deviantart.com:3900"
agent = "marsipan"
rooms = ["#Botdom"]
store_dsn = "sqlite:marsipan.db"
admin_addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]

# runtime tuning
connect_timeout = "10s"
read_timeout = "120s"
write_timeout = "15s"
backoff_initial = "500ms"
backoff_max = "30s"
max_connect_attempts = 0
`

const envTemplate = `MARSIPAN_USERNAME=marsipan
MARSIPAN_PK=
MARSIPAN_LOG_LEVEL=info
`
