package hooks

import (
	"context"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/event"
	"github.com/danmuck/marsipan/internal/protocol"
	"github.com/danmuck/marsipan/internal/store"
)

// Responder is the outbound side handlers write to. *delivery.Queue
// implements it.
type Responder interface {
	Now() time.Time
	Push(msg protocol.Message) delivery.Handle
	Schedule(msg protocol.Message, delay time.Duration) delivery.Handle
	ScheduleAt(msg protocol.Message, at time.Time) delivery.Handle
	Cancel(h delivery.Handle) bool
}

// Context is what a handler sees for one event.
type Context struct {
	event.Event

	ctx      context.Context
	out      Responder
	registry *Registry

	args    string
	command bool
}

// Args is the argument text of the matched command with its trigger and
// command word removed. Outside a command handler it falls back to the
// content without its first word.
func (c *Context) Args() string {
	if c.command {
		return c.args
	}
	return c.Event.Args()
}

// Context returns the dispatch context for blocking calls (store lookups).
func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) Now() time.Time {
	return c.out.Now()
}

// Respond sends text to the event's chatroom now.
func (c *Context) Respond(text string) delivery.Handle {
	return c.out.Push(protocol.NewSend(c.Chatroom, text))
}

// RespondIn sends text to the event's chatroom after delay.
func (c *Context) RespondIn(text string, delay time.Duration) delivery.Handle {
	return c.out.Schedule(protocol.NewSend(c.Chatroom, text), delay)
}

// RespondAt sends text to the event's chatroom at instant at.
func (c *Context) RespondAt(text string, at time.Time) delivery.Handle {
	return c.out.ScheduleAt(protocol.NewSend(c.Chatroom, text), at)
}

// RespondHighlight prefixes text with the sender's name.
func (c *Context) RespondHighlight(text string) delivery.Handle {
	return c.Respond(c.Sender + ": " + text)
}

// Cancel drops a scheduled response that has not been sent.
func (c *Context) Cancel(h delivery.Handle) bool {
	return c.out.Cancel(h)
}

func (c *Context) Allocator() *Allocator {
	return c.registry.alloc
}

func (c *Context) State() *State {
	return c.registry.state
}

// Store is the greeting store; nil when none is configured.
func (c *Context) Store() store.Store {
	return c.registry.store
}

// Commands lists registered command words.
func (c *Context) Commands() []string {
	return c.registry.Commands()
}

// Name is the bot's own username.
func (c *Context) Name() string {
	return c.registry.name
}
