// Package commands is the bot's built-in command and join-hook set.
package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/danmuck/marsipan/internal/hooks"
)

// Version is reported by !about. Overridden at link time.
var Version = "0.1.0"

// Default returns the registration updates for every built-in hook.
func Default(alloc *hooks.Allocator) []hooks.Update {
	return hooks.Batch(
		hooks.Register(alloc, "about", static(about)),
		hooks.Register(alloc, "commands", static(listCommands)),
		hooks.Register(alloc, "echo", static(echo)),
		hooks.Register(alloc, "ping", static(ping)),
		hooks.Register(alloc, "foo", foo),
		hooks.Register(alloc, "sleep", static(sleep)),
		hooks.Register(alloc, "wakeup", static(wakeup)),
		hooks.Register(alloc, "wordwar", static(wordwar)),
		hooks.Register(alloc, "setwelcome", static(setWelcome)),
		hooks.RegisterJoin(alloc, func(hooks.J) hooks.Handler { return hooks.HandlerFunc(welcome) }),
	)
}

// static wraps a handler that never needs its own handle.
func static(fn func(*hooks.Context) []hooks.Update) func(hooks.M) hooks.Handler {
	return func(hooks.M) hooks.Handler {
		return hooks.HandlerFunc(fn)
	}
}

func about(c *hooks.Context) []hooks.Update {
	c.Respond(fmt.Sprintf("\U0001F370 <b>marsipan v%s</b> built with %s", Version, runtime.Version()))
	return nil
}

func listCommands(c *hooks.Context) []hooks.Update {
	c.RespondHighlight("Commands are: " + strings.Join(c.Commands(), ", "))
	return nil
}

func echo(c *hooks.Context) []hooks.Update {
	if text := c.Args(); text != "" {
		c.Respond(text)
	}
	return nil
}
