package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/marsipan/internal/protocol"
)

const (
	ClientVersion = "0.3"
	RoomPrefix    = "chat:"
)

var (
	ErrLoginFailed   = errors.New("session: login failed")
	ErrJoinFailed    = errors.New("session: join failed")
	ErrNotLoginReply = errors.New("session: not a login reply")
)

// ClientHandshake is the first packet a client sends:
//
//	dAmnClient 0.3\nagent=<agent>\n\0
func ClientHandshake(agent string) protocol.Message {
	msg := protocol.Message{
		Name:     "dAmnClient",
		Argument: []byte(ClientVersion),
	}
	if agent = strings.TrimSpace(agent); agent != "" {
		msg.Attrs = map[string]string{"agent": agent}
	}
	return msg
}

// Login answers the server handshake with the user's auth token.
func Login(username, token string) protocol.Message {
	return protocol.Message{
		Name:     "login",
		Argument: []byte(username),
		Attrs:    map[string]string{"pk": token},
	}
}

func Join(room string) protocol.Message {
	return protocol.Message{Name: "join", Argument: []byte(NormalizeRoom(room))}
}

func Part(room string) protocol.Message {
	return protocol.Message{Name: "part", Argument: []byte(NormalizeRoom(room))}
}

// Pong answers a server ping: "pong\n\0".
func Pong() protocol.Message {
	return protocol.Message{Name: "pong"}
}

// NormalizeRoom adds the "chat:" namespace and strips a leading '#'.
func NormalizeRoom(room string) string {
	room = strings.TrimSpace(room)
	if strings.HasPrefix(room, RoomPrefix) {
		return room
	}
	return RoomPrefix + strings.TrimPrefix(room, "#")
}

// CheckLogin interprets a "login <user>\ne=<status>" reply.
func CheckLogin(msg protocol.Message) error {
	if msg.Name != "login" {
		return ErrNotLoginReply
	}
	status, _ := msg.Attr("e")
	if status != "ok" {
		return fmt.Errorf("%w: user=%s e=%q", ErrLoginFailed, msg.Arg(), status)
	}
	return nil
}

// CheckJoin interprets a "join|part <room>\ne=<status>" reply.
func CheckJoin(msg protocol.Message) error {
	status, _ := msg.Attr("e")
	if status != "ok" {
		return fmt.Errorf("%w: %s %s e=%q", ErrJoinFailed, msg.Name, msg.Arg(), status)
	}
	return nil
}
