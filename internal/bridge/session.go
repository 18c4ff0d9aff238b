package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/event"
	"github.com/danmuck/marsipan/internal/hooks"
	"github.com/danmuck/marsipan/internal/observability"
	"github.com/danmuck/marsipan/internal/protocol"
	"github.com/danmuck/marsipan/internal/protocol/frame"
	"github.com/danmuck/marsipan/internal/protocol/session"
	"github.com/rs/zerolog"
)

var (
	ErrDisconnected     = errors.New("bridge: server disconnected")
	ErrHandshakeTimeout = errors.New("bridge: login not completed in time")
	ErrDecode           = errors.New("bridge: undecodable frame")
)

// Session is one live connection. It is not reusable.
type Session struct {
	id       string
	cfg      ServiceConfig
	conn     net.Conn
	queue    *delivery.Queue
	registry *hooks.Registry
	rooms    *session.Rooms
	log      zerolog.Logger

	loggedIn bool
	observe  func(*Session)
}

func newSession(id string, cfg ServiceConfig, conn net.Conn, registry *hooks.Registry, rooms *session.Rooms, clock delivery.Clock) *Session {
	return &Session{
		id:       id,
		cfg:      cfg,
		conn:     conn,
		queue:    delivery.NewQueue(clock),
		registry: registry,
		rooms:    rooms,
		log:      observability.Component("bridge").With().Str("session", id).Logger(),
	}
}

func (s *Session) ID() string                { return s.id }
func (s *Session) LoggedIn() bool            { return s.loggedIn }
func (s *Session) Queue() *delivery.Queue    { return s.queue }
func (s *Session) Registry() *hooks.Registry { return s.registry }

// Run drives the connection until ctx ends, the server goes away or a fatal
// protocol error occurs. The connection is closed on return. A nil error means
// ctx was cancelled.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go s.readLoop(frames, readErr, done)

	s.queue.Push(session.ClientHandshake(s.cfg.Agent))
	handshake := time.NewTimer(s.cfg.Session.HandshakeTimeout)
	defer handshake.Stop()
	handshakeC := handshake.C

	for {
		s.report()
		select {
		case <-ctx.Done():
			s.partAll()
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge: read: %w", err)
		case <-handshakeC:
			return ErrHandshakeTimeout
		case raw := <-frames:
			if err := s.handleFrame(ctx, raw); err != nil {
				return err
			}
			if s.loggedIn && handshakeC != nil {
				handshake.Stop()
				handshakeC = nil
			}
		case <-s.queue.Wake():
		case <-s.queue.C():
			if err := s.write(ctx, s.queue.Pop()); err != nil {
				return err
			}
		}
	}
}

// partAll leaves every joined room before the connection is closed.
func (s *Session) partAll() {
	if !s.loggedIn {
		return
	}
	for _, room := range s.rooms.List() {
		if err := s.write(context.Background(), session.Part(room.Room)); err != nil {
			s.log.Debug().Err(err).Str("room", room.Room).Msg("part on shutdown failed")
			return
		}
		s.rooms.Parted(room.Room)
	}
}

func (s *Session) readLoop(frames chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	reader := frame.NewReader(s.conn, s.cfg.Limits)
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.Session.ReadTimeout)); err != nil {
			readErr <- err
			return
		}
		raw, err := reader.ReadFrame()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case frames <- raw:
		case <-done:
			return
		}
	}
}

func (s *Session) write(ctx context.Context, msg protocol.Message) error {
	ctxDeadline, ok := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline(time.Now(), s.cfg.Session.WriteTimeout, ctxDeadline, ok)); err != nil {
		return fmt.Errorf("bridge: write: %w", err)
	}
	if err := frame.WriteMessage(s.conn, msg, s.cfg.Limits); err != nil {
		if errors.Is(err, protocol.ErrInvalidMessage) || errors.Is(err, frame.ErrFrameTooLarge) {
			s.log.Error().Err(err).Str("name", msg.Name).Msg("dropping unsendable message")
			return nil
		}
		return fmt.Errorf("bridge: write: %w", err)
	}
	observability.RecordFrame("out", msg.Name)
	if msg.Name == "login" {
		s.log.Trace().Str("name", msg.Name).Str("arg", msg.Arg()).Msg("<<< login pk=***")
	} else {
		s.log.Trace().Str("name", msg.Name).Msgf("<<< %q", msg.String())
	}
	return nil
}

func (s *Session) handleFrame(ctx context.Context, raw []byte) error {
	msg, err := protocol.Decode(raw)
	if err != nil {
		observability.RecordDecodeError(decodeReason(err))
		s.log.Error().Err(err).Int("bytes", len(raw)).Msg("decode failed")
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	observability.RecordFrame("in", msg.Name)
	s.log.Trace().Str("name", msg.Name).Msgf(">>> %q", msg.String())
	return s.handle(ctx, msg)
}

func (s *Session) handle(ctx context.Context, msg protocol.Message) error {
	switch msg.Name {
	case "dAmnServer":
		s.log.Info().Str("server", msg.Arg()).Msg("server handshake")
		s.queue.Push(session.Login(s.cfg.Username, s.cfg.Token))
	case "login":
		if err := session.CheckLogin(msg); err != nil {
			return err
		}
		s.loggedIn = true
		observability.SetSessionUp(true)
		s.log.Info().Str("user", msg.Arg()).Msg("logged in")
		for _, room := range s.cfg.Rooms {
			s.log.Info().Str("room", session.NormalizeRoom(room)).Msg("joining")
			s.queue.Push(session.Join(room))
		}
	case "join", "part":
		if err := session.CheckJoin(msg); err != nil {
			s.log.Warn().Err(err).Msg("room request refused")
			return nil
		}
		if msg.Name == "join" {
			s.rooms.Joined(msg.Arg(), s.queue.Now())
		} else {
			s.rooms.Parted(msg.Arg())
		}
		s.log.Info().Str("room", msg.Arg()).Str("op", msg.Name).Msg("room updated")
	case "ping":
		s.queue.Push(session.Pong())
	case "recv":
		return s.dispatch(ctx, msg)
	case "disconnect":
		reason, _ := msg.Attr("e")
		return fmt.Errorf("%w: e=%q", ErrDisconnected, reason)
	default:
		s.log.Debug().Str("name", msg.Name).Msg("unhandled packet")
	}
	return nil
}

func (s *Session) dispatch(ctx context.Context, msg protocol.Message) error {
	ev, err := event.Classify(msg, s.cfg.Username)
	if err != nil {
		if errors.Is(err, event.ErrMissingChatroom) {
			s.log.Error().Err(err).Msg("recv without chatroom")
			return err
		}
		s.log.Debug().Err(err).Msg("recv ignored")
		return nil
	}
	observability.RecordEvent(ev.Kind.String())
	n := s.registry.Dispatch(ctx, ev, s.queue)
	s.log.Debug().
		Str("kind", ev.Kind.String()).
		Str("chatroom", ev.Chatroom).
		Str("sender", ev.Sender).
		Int("handlers", n).
		Msg("event dispatched")
	return nil
}

func (s *Session) report() {
	observability.SetQueueDepth(s.queue.Len())
	observability.SetHandlers(s.registry.MessageHandlers(), s.registry.JoinHandlers())
	if s.observe != nil {
		s.observe(s)
	}
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, protocol.ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, protocol.ErrMissingTerminator):
		return "missing_terminator"
	default:
		return "malformed"
	}
}
