package bridge

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/marsipan/internal/commands"
	"github.com/danmuck/marsipan/internal/event"
	"github.com/danmuck/marsipan/internal/hooks"
	"github.com/danmuck/marsipan/internal/protocol"
	"github.com/danmuck/marsipan/internal/protocol/frame"
	"github.com/danmuck/marsipan/internal/protocol/session"
	"github.com/danmuck/marsipan/internal/store"
	"github.com/danmuck/marsipan/internal/testutil/testlog"
)

// fakeServer is the server end of a net.Pipe.
type fakeServer struct {
	t      *testing.T
	conn   net.Conn
	reader *frame.Reader
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	t.Helper()
	t.Cleanup(func() { conn.Close() })
	return &fakeServer{t: t, conn: conn, reader: frame.NewReader(conn, frame.DefaultLimits())}
}

func (f *fakeServer) expect(name string) protocol.Message {
	f.t.Helper()
	_ = f.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := f.reader.ReadMessage()
	if err != nil {
		f.t.Fatalf("read %s: %v", name, err)
	}
	if msg.Name != name {
		f.t.Fatalf("expected %q packet, got %q", name, msg.String())
	}
	return msg
}

func (f *fakeServer) send(raw string) {
	f.t.Helper()
	_ = f.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := f.conn.Write([]byte(raw)); err != nil {
		f.t.Fatalf("write %q: %v", raw, err)
	}
}

func testConfig() ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.Username = "marsipan"
	cfg.Token = "tok"
	cfg.Rooms = []string{"#Botdom"}
	cfg.Session.HandshakeTimeout = 2 * time.Second
	cfg.Session.ReadTimeout = 5 * time.Second
	cfg.Session.WriteTimeout = 2 * time.Second
	cfg.Session.Backoff = session.BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return cfg.withDefaults()
}

func startSession(t *testing.T, cfg ServiceConfig) (*fakeServer, *Session, *session.Rooms, <-chan error, context.CancelFunc) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	reg := hooks.NewRegistry(cfg.Username, store.NewMemory())
	reg.Apply(commands.Default(reg.Allocator()))
	rooms := session.NewRooms()
	sess := newSession("test", cfg, clientConn, reg, rooms, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- sess.Run(ctx) }()
	return newFakeServer(t, serverConn), sess, rooms, errCh, cancel
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(3 * time.Second):
		t.Fatalf("session did not stop")
		return nil
	}
}

func login(t *testing.T, srv *fakeServer) {
	t.Helper()
	hello := srv.expect("dAmnClient")
	if hello.Arg() != session.ClientVersion {
		t.Fatalf("unexpected client version: %q", hello.Arg())
	}
	if agent, _ := hello.Attr("agent"); agent != "marsipan" {
		t.Fatalf("unexpected agent: %q", agent)
	}
	srv.send("dAmnServer 0.3\n\x00")
	req := srv.expect("login")
	if req.Arg() != "marsipan" || !req.HasAttr("pk", "tok") {
		t.Fatalf("unexpected login: %q", req.String())
	}
	srv.send("login marsipan\ne=ok\n\x00")
}

func TestSessionLoginJoinAndDispatch(t *testing.T) {
	testlog.Start(t)
	srv, sess, rooms, errCh, _ := startSession(t, testConfig())

	login(t, srv)
	join := srv.expect("join")
	if join.Arg() != "chat:Botdom" {
		t.Fatalf("unexpected join room: %q", join.Arg())
	}
	srv.send("join chat:Botdom\ne=ok\n\x00")

	srv.send("ping\n\x00")
	srv.expect("pong")
	if _, ok := rooms.Get("Botdom"); !ok {
		t.Fatalf("expected Botdom joined, have %+v", rooms.List())
	}
	if !sess.LoggedIn() {
		t.Fatalf("expected session logged in")
	}

	srv.send("recv chat:Botdom\n\nmsg main\nfrom=alice\n\n!echo hi &b\tthere&/b\t\x00")
	reply := srv.expect("send")
	if reply.Arg() != "chat:Botdom" {
		t.Fatalf("unexpected reply room: %q", reply.Arg())
	}
	sub, err := reply.Body.Submessage()
	if err != nil {
		t.Fatalf("reply body: %v", err)
	}
	if got := sub.Body.Text(); got != "hi <b>there</b>" {
		t.Fatalf("unexpected echo: %q", got)
	}

	srv.send("disconnect\ne=killed\n\x00")
	if err := waitErr(t, errCh); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected disconnect, got %v", err)
	}
}

func TestSessionIgnoresOwnMessages(t *testing.T) {
	testlog.Start(t)
	srv, _, _, errCh, cancel := startSession(t, testConfig())
	login(t, srv)
	srv.expect("join")

	srv.send("recv chat:Botdom\n\nmsg main\nfrom=Marsipan\n\n!ping\x00")
	srv.send("ping\n\x00")
	srv.expect("pong")

	cancel()
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestSessionLoginRejected(t *testing.T) {
	testlog.Start(t)
	srv, _, _, errCh, _ := startSession(t, testConfig())
	srv.expect("dAmnClient")
	srv.send("dAmnServer 0.3\n\x00")
	srv.expect("login")
	srv.send("login marsipan\ne=authentication failed\n\x00")
	if err := waitErr(t, errCh); !errors.Is(err, session.ErrLoginFailed) {
		t.Fatalf("expected login failure, got %v", err)
	}
}

func TestSessionDecodeFailureIsFatal(t *testing.T) {
	testlog.Start(t)
	srv, _, _, errCh, _ := startSession(t, testConfig())
	srv.expect("dAmnClient")
	srv.send("9lives\n\x00")
	err := waitErr(t, errCh)
	if !errors.Is(err, ErrDecode) || !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSessionMissingChatroomIsFatal(t *testing.T) {
	testlog.Start(t)
	srv, _, _, errCh, _ := startSession(t, testConfig())
	login(t, srv)
	srv.expect("join")
	srv.send("recv\n\nmsg main\nfrom=alice\n\nhello\x00")
	if err := waitErr(t, errCh); !errors.Is(err, event.ErrMissingChatroom) {
		t.Fatalf("expected missing chatroom, got %v", err)
	}
}

func TestSessionHandshakeTimeout(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.Session.HandshakeTimeout = 50 * time.Millisecond
	srv, _, _, errCh, _ := startSession(t, cfg)
	srv.expect("dAmnClient")
	if err := waitErr(t, errCh); !errors.Is(err, ErrHandshakeTimeout) {
		t.Fatalf("expected handshake timeout, got %v", err)
	}
}

func TestSessionUnknownPacketIgnored(t *testing.T) {
	testlog.Start(t)
	srv, _, _, errCh, cancel := startSession(t, testConfig())
	login(t, srv)
	srv.expect("join")
	srv.send("property chat:Botdom\np=topic\n\nhello\x00")
	srv.send("ping\n\x00")
	srv.expect("pong")
	cancel()
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestSessionPartsRoomsOnShutdown(t *testing.T) {
	testlog.Start(t)
	srv, _, rooms, errCh, cancel := startSession(t, testConfig())
	login(t, srv)
	srv.expect("join")
	srv.send("join chat:Botdom\ne=ok\n\x00")
	srv.send("ping\n\x00")
	srv.expect("pong")

	cancel()
	part := srv.expect("part")
	if part.Arg() != "chat:Botdom" {
		t.Fatalf("unexpected part room: %q", part.Arg())
	}
	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
	if len(rooms.List()) != 0 {
		t.Fatalf("expected no rooms after shutdown, have %+v", rooms.List())
	}
}
