package commands

import "github.com/danmuck/marsipan/internal/hooks"

// foo and bar swap each other in and out of the registry.
func foo(self hooks.M) hooks.Handler {
	return hooks.HandlerFunc(func(c *hooks.Context) []hooks.Update {
		c.Respond("Disabling !foo and enabling !bar")
		return hooks.Batch(hooks.Unregister(self), hooks.Register(c.Allocator(), "bar", bar))
	})
}

func bar(self hooks.M) hooks.Handler {
	return hooks.HandlerFunc(func(c *hooks.Context) []hooks.Update {
		c.Respond("Disabling !bar and enabling !foo")
		return hooks.Batch(hooks.Unregister(self), hooks.Register(c.Allocator(), "foo", foo))
	})
}
