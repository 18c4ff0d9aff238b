package bridge

import (
	"strings"
	"time"

	"github.com/danmuck/marsipan/internal/config"
	"github.com/danmuck/marsipan/internal/protocol/frame"
	"github.com/danmuck/marsipan/internal/protocol/session"
)

// ServiceConfig configures the bot process.
type ServiceConfig struct {
	Username string
	Token    string
	Address  string
	Agent    string
	Rooms    []string

	Session session.Config
	Limits  frame.Limits

	// MaxConnectAttempts bounds consecutive failed connections; 0 retries
	// forever.
	MaxConnectAttempts int

	AdminListenAddr string

	// AdminToken, when set, guards /status and /metrics with a bearer token.
	AdminToken  string
	CorsOrigins []string
	StoreDSN    string
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Address:         config.DefaultAddr,
		Agent:           config.DefaultAgent,
		Session:         session.DefaultConfig(),
		Limits:          frame.DefaultLimits(),
		AdminListenAddr: "",
	}
}

// FromBridgeConfig overlays a loaded file config onto cfg.
func FromBridgeConfig(cfg ServiceConfig, file config.BridgeConfig) ServiceConfig {
	cfg.Username = strings.TrimSpace(file.Username)
	cfg.Token = strings.TrimSpace(file.Token)
	if addr := strings.TrimSpace(file.Addr); addr != "" {
		cfg.Address = addr
	}
	if agent := strings.TrimSpace(file.Agent); agent != "" {
		cfg.Agent = agent
	}
	cfg.Rooms = append([]string(nil), file.Rooms...)
	cfg.StoreDSN = strings.TrimSpace(file.StoreDSN)
	cfg.AdminListenAddr = strings.TrimSpace(file.AdminAddr)
	cfg.CorsOrigins = append([]string(nil), file.CorsOrigins...)
	cfg.AdminToken = strings.TrimSpace(file.AdminToken)
	return cfg
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if strings.TrimSpace(c.Address) == "" {
		c.Address = def.Address
	}
	if strings.TrimSpace(c.Agent) == "" {
		c.Agent = def.Agent
	}
	if c.Limits.MaxFrameBytes <= 0 {
		c.Limits = def.Limits
	}
	if c.Session.ConnectTimeout <= 0 {
		c.Session.ConnectTimeout = def.Session.ConnectTimeout
	}
	if c.Session.HandshakeTimeout <= 0 {
		c.Session.HandshakeTimeout = def.Session.HandshakeTimeout
	}
	if c.Session.ReadTimeout <= 0 {
		c.Session.ReadTimeout = def.Session.ReadTimeout
	}
	if c.Session.WriteTimeout <= 0 {
		c.Session.WriteTimeout = def.Session.WriteTimeout
	}
	if c.Session.Backoff == (session.BackoffConfig{}) {
		c.Session.Backoff = def.Session.Backoff
	}
	return c
}

// deadline caps d by the context deadline, if any.
func deadline(now time.Time, d time.Duration, ctxDeadline time.Time, ok bool) time.Time {
	out := now.Add(d)
	if ok && ctxDeadline.Before(out) {
		return ctxDeadline
	}
	return out
}
