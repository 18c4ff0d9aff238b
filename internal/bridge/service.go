package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/marsipan/internal/commands"
	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/hooks"
	"github.com/danmuck/marsipan/internal/observability"
	"github.com/danmuck/marsipan/internal/protocol/session"
	"github.com/danmuck/marsipan/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrUsernameRequired = errors.New("bridge: username required")
	ErrTokenRequired    = errors.New("bridge: token required")
	ErrGaveUp           = errors.New("bridge: connect attempts exhausted")
)

// Status is the admin view of the service.
type Status struct {
	Username        string    `json:"username"`
	Address         string    `json:"address"`
	SessionID       string    `json:"session_id,omitempty"`
	Connected       bool      `json:"connected"`
	LoggedIn        bool      `json:"logged_in"`
	Rooms           []string  `json:"rooms"`
	Connects        uint64    `json:"connects"`
	QueueDepth      int       `json:"queue_depth"`
	MessageHandlers int       `json:"message_handlers"`
	JoinHandlers    int       `json:"join_handlers"`
	Commands        []string  `json:"commands"`
	Store           string    `json:"store"`
	StartedAt       time.Time `json:"started_at"`
	LastError       string    `json:"last_error,omitempty"`
}

// Service keeps one bot session alive, reconnecting with backoff.
type Service struct {
	cfg       ServiceConfig
	store     store.Store
	rooms     *session.Rooms
	rng       *rand.Rand
	log       zerolog.Logger
	startedAt time.Time

	// seams for tests
	dial    func(ctx context.Context) (net.Conn, error)
	clock   delivery.Clock
	install func(*hooks.Registry)

	connects  atomic.Uint64
	connected atomic.Bool

	mu       sync.RWMutex
	snapshot Status
}

// NewService builds a service. st may be nil; greeting commands then report
// that welcomes are disabled.
func NewService(cfg ServiceConfig, st store.Store) (*Service, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, ErrUsernameRequired
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrTokenRequired
	}
	s := &Service{
		cfg:       cfg,
		store:     st,
		rooms:     session.NewRooms(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       observability.Component("bridge"),
		startedAt: time.Now(),
		install: func(reg *hooks.Registry) {
			reg.Apply(commands.Default(reg.Allocator()))
		},
	}
	s.dial = s.dialTCP
	return s, nil
}

func (s *Service) Config() ServiceConfig { return s.cfg }

// Run blocks until ctx is cancelled or the service cannot continue: a
// rejected login, exhausted connect attempts or an admin listener failure.
func (s *Service) Run(ctx context.Context) error {
	observability.RegisterMetrics()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminListenAddr) != "" {
		go func() {
			adminErr <- s.serveAdmin(ctx, s.cfg.AdminListenAddr)
		}()
	}
	sessionErr := make(chan error, 1)
	go func() {
		sessionErr <- s.runSessionLoop(ctx)
	}()

	select {
	case err := <-sessionErr:
		return err
	case err := <-adminErr:
		if err != nil {
			cancel()
			<-sessionErr
			return err
		}
		return <-sessionErr
	}
}

func (s *Service) runSessionLoop(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("shutdown")
			return nil
		}

		loggedIn, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.log.Info().Msg("shutdown")
			return nil
		}
		if errors.Is(err, session.ErrLoginFailed) {
			s.log.Error().Err(err).Msg("login rejected; not retrying")
			return err
		}
		if loggedIn {
			attempt = 0
		}
		attempt++
		if s.cfg.MaxConnectAttempts > 0 && attempt >= s.cfg.MaxConnectAttempts {
			return fmt.Errorf("%w: attempts=%d last=%w", ErrGaveUp, attempt, err)
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("session lost; reconnecting")
		if err := s.waitReconnectBackoff(ctx, attempt); err != nil {
			return nil
		}
		observability.RecordReconnect()
	}
}

// runOnce dials and drives one session. It reports whether login succeeded.
func (s *Service) runOnce(ctx context.Context) (bool, error) {
	id := uuid.NewString()
	s.log.Info().Str("session", id).Str("addr", s.cfg.Address).Msg("connecting")

	conn, err := s.dial(ctx)
	if err != nil {
		s.setLastError(err)
		return false, fmt.Errorf("bridge: dial %s: %w", s.cfg.Address, err)
	}
	s.connects.Add(1)
	s.connected.Store(true)
	s.rooms.Reset()

	reg := hooks.NewRegistry(s.cfg.Username, s.store)
	s.install(reg)
	sess := newSession(id, s.cfg, conn, reg, s.rooms, s.clock)
	sess.observe = s.capture

	err = sess.Run(ctx)

	s.connected.Store(false)
	observability.SetSessionUp(false)
	s.rooms.Reset()
	s.capture(sess)
	s.mu.Lock()
	s.snapshot.LoggedIn = false
	s.snapshot.QueueDepth = 0
	s.mu.Unlock()
	if err != nil {
		s.setLastError(err)
	}
	return sess.LoggedIn(), err
}

func (s *Service) dialTCP(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.cfg.Session.ConnectTimeout}
	return dialer.DialContext(ctx, "tcp", s.cfg.Address)
}

func (s *Service) waitReconnectBackoff(ctx context.Context, attempt int) error {
	delay := session.NextBackoffDelay(s.cfg.Session.Backoff, attempt, s.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// capture copies reactor-owned counters for the admin surface. It runs on
// the reactor goroutine.
func (s *Service) capture(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.SessionID = sess.ID()
	s.snapshot.LoggedIn = sess.LoggedIn()
	s.snapshot.QueueDepth = sess.Queue().Len()
	s.snapshot.MessageHandlers = sess.Registry().MessageHandlers()
	s.snapshot.JoinHandlers = sess.Registry().JoinHandlers()
	s.snapshot.Commands = sess.Registry().Commands()
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err.Error()
}

func (s *Service) Status() Status {
	s.mu.RLock()
	out := s.snapshot
	s.mu.RUnlock()

	out.Username = s.cfg.Username
	out.Address = s.cfg.Address
	out.Connected = s.connected.Load()
	out.Connects = s.connects.Load()
	out.Store = store.Backend(s.store)
	out.StartedAt = s.startedAt
	out.Commands = append([]string(nil), out.Commands...)
	rooms := s.rooms.List()
	out.Rooms = make([]string, 0, len(rooms))
	for _, r := range rooms {
		out.Rooms = append(out.Rooms, r.Room)
	}
	return out
}
