package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/hooks"
)

const sleepKey = "sleep"

func sleep(c *hooks.Context) []hooks.Update {
	arg := strings.TrimSpace(c.Args())
	if arg == "" {
		return nil
	}
	secs, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		c.Respond("That doesn't look like a number.")
		return nil
	}
	if prev, ok := c.State().Take(sleepKey); ok {
		c.Cancel(prev.(delivery.Handle))
	}
	c.Respond(fmt.Sprintf("Sleeping for %d seconds. ZZZzzz...", secs))
	h := c.RespondIn("Waking up!", time.Duration(secs)*time.Second)
	c.State().Set(sleepKey, h)
	return nil
}

func wakeup(c *hooks.Context) []hooks.Update {
	prev, ok := c.State().Take(sleepKey)
	if ok && c.Cancel(prev.(delivery.Handle)) {
		c.Respond("Ok, I'm awake!")
		return nil
	}
	c.Respond("I wasn't sleeping!")
	return nil
}
