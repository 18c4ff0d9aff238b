package commands

import (
	"fmt"

	"github.com/danmuck/marsipan/internal/hooks"
)

const bell = "\U0001F514"

// ping sends a probe and registers a one-shot hook that answers the next
// probe line seen in chat with the elapsed time. The bot's own lines never
// reach handlers, so the probe is closed by a peer (another bot instance or a
// user) repeating it.
func ping(c *hooks.Context) []hooks.Update {
	probe := bell + "?"
	c.Respond(probe)
	sent := c.Now()
	return hooks.Batch(hooks.RegisterMessage(c.Allocator(), func(self hooks.M) hooks.Handler {
		return hooks.HandlerFunc(func(c *hooks.Context) []hooks.Update {
			if c.Content != probe {
				return nil
			}
			c.Respond(fmt.Sprintf("%s! (%dms)", bell, c.Now().Sub(sent).Milliseconds()))
			return hooks.Batch(hooks.Unregister(self))
		})
	}))
}
