// Package hooks holds the runtime-mutable handler registry and routes
// classified events to it.
//
// Handlers never mutate the registry directly. Each returns a batch of updates;
// all batches from one dispatch pass are applied after every handler has run.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/marsipan/internal/event"
	"github.com/danmuck/marsipan/internal/store"
)

// Handler reacts to one event and returns registry updates.
type Handler interface {
	Handle(c *Context) []Update
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(c *Context) []Update

func (f HandlerFunc) Handle(c *Context) []Update {
	return f(c)
}

// command gates a handler behind a trigger prefix and a command word.
type command struct {
	word     string
	triggers []string
	next     Handler
}

func (h command) Handle(c *Context) []Update {
	args, ok := CommandArgs(c.Content, h.triggers, h.word)
	if !ok {
		return nil
	}
	cc := *c
	cc.args = args
	cc.command = true
	return h.next.Handle(&cc)
}

// MatchCommand reports whether text starts with one of triggers immediately
// followed by word. Matching is byte-exact with no word boundary: "!pingpong"
// matches "ping".
func MatchCommand(text string, triggers []string, word string) bool {
	_, ok := CommandArgs(text, triggers, word)
	return ok
}

// CommandArgs matches like MatchCommand and returns the argument text: what
// follows the first space after the command word. "marsipan: echo hi there"
// yields "hi there" for word "echo".
func CommandArgs(text string, triggers []string, word string) (string, bool) {
	for _, trigger := range triggers {
		rest, ok := strings.CutPrefix(text, trigger)
		if !ok {
			continue
		}
		if rest, ok = strings.CutPrefix(rest, word); ok {
			_, args, _ := strings.Cut(rest, " ")
			return args, true
		}
	}
	return "", false
}

// Triggers returns the command prefixes for a bot named name.
func Triggers(name string) []string {
	return []string{"!", name + ": "}
}

type Registry struct {
	name     string
	triggers []string
	alloc    *Allocator
	state    *State
	store    store.Store

	message  map[M]Handler
	join     map[J]Handler
	commands map[M]string
}

// NewRegistry creates an empty registry for the bot named name. st may be nil.
func NewRegistry(name string, st store.Store) *Registry {
	return &Registry{
		name:     name,
		triggers: Triggers(name),
		alloc:    &Allocator{},
		state:    NewState(),
		store:    st,
		message:  make(map[M]Handler),
		join:     make(map[J]Handler),
		commands: make(map[M]string),
	}
}

func (r *Registry) Allocator() *Allocator { return r.alloc }
func (r *Registry) State() *State         { return r.state }
func (r *Registry) MessageHandlers() int  { return len(r.message) }
func (r *Registry) JoinHandlers() int     { return len(r.join) }

// Commands returns registered command words, sorted and deduplicated.
func (r *Registry) Commands() []string {
	seen := make(map[string]struct{}, len(r.commands))
	out := make([]string, 0, len(r.commands))
	for _, word := range r.commands {
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	sort.Strings(out)
	return out
}

// Apply performs updates in order. Dropping an unknown handle is a no-op.
func (r *Registry) Apply(updates []Update) {
	for _, u := range updates {
		switch u.Op {
		case OpAddMessage:
			r.message[u.M] = u.Handler
		case OpAddCommand:
			r.message[u.M] = command{word: u.Word, triggers: r.triggers, next: u.Handler}
			r.commands[u.M] = u.Word
		case OpAddJoin:
			r.join[u.J] = u.Handler
		case OpDropMessage:
			delete(r.message, u.M)
			delete(r.commands, u.M)
		case OpDropJoin:
			delete(r.join, u.J)
		default:
			log.Warn().Int("op", int(u.Op)).Msg("hooks: unknown update op")
			continue
		}
		log.Debug().
			Str("op", u.Op.String()).
			Uint64("m", uint64(u.M)).
			Uint64("j", uint64(u.J)).
			Str("word", u.Word).
			Msg("hooks: update applied")
	}
}

// Dispatch runs every handler of ev's category and then applies the collected
// updates. It returns the number of handlers invoked. Part events have no
// handler category.
func (r *Registry) Dispatch(ctx context.Context, ev event.Event, out Responder) int {
	c := &Context{Event: ev, ctx: ctx, out: out, registry: r}
	var (
		updates []Update
		invoked int
	)
	switch ev.Kind {
	case event.KindJoin:
		for _, j := range sortedKeys(r.join) {
			updates = append(updates, r.invoke(c, fmt.Sprintf("j%d", j), r.join[j])...)
			invoked++
		}
	case event.KindMessage, event.KindAction:
		for _, m := range sortedKeys(r.message) {
			updates = append(updates, r.invoke(c, fmt.Sprintf("m%d", m), r.message[m])...)
			invoked++
		}
	case event.KindPart:
		return 0
	}
	r.Apply(updates)
	return invoked
}

// invoke isolates handler panics so one bad handler cannot kill the session.
func (r *Registry) invoke(c *Context, id string, h Handler) (updates []Update) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("handler", id).
				Str("chatroom", c.Chatroom).
				Str("sender", c.Sender).
				Interface("panic", rec).
				Msg("hooks: handler panicked")
			updates = nil
		}
	}()
	return h.Handle(c)
}

func sortedKeys[K ~uint64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
