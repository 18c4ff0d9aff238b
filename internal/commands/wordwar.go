package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/marsipan/internal/delivery"
	"github.com/danmuck/marsipan/internal/hooks"
)

var (
	errWarSyntax  = errors.New("wordwar: expected \"at :MM for N\"")
	errWarTooLong = errors.New("wordwar: duration over limit")
)

const maxWarMinutes = 59

// war is one scheduled writing sprint. Participants are highlighted in the
// start and stop announcements.
type war struct {
	id           hooks.W
	start, end   time.Time
	startMsg     delivery.Handle
	endMsg       delivery.Handle
	participants []string
}

// parseWar reads "at :MM for N" relative to now. The war starts at minute MM
// of the current hour, or of the next hour when MM is not in the future.
func parseWar(args string, now time.Time) (time.Time, time.Time, error) {
	rest, ok := strings.CutPrefix(args, "at :")
	if !ok {
		return time.Time{}, time.Time{}, errWarSyntax
	}
	minStr, durStr, ok := strings.Cut(rest, " for ")
	if !ok {
		return time.Time{}, time.Time{}, errWarSyntax
	}
	minute, err := parseDigits(minStr)
	if err != nil || minute > 59 {
		return time.Time{}, time.Time{}, errWarSyntax
	}
	dur, err := parseDigits(durStr)
	if err != nil {
		return time.Time{}, time.Time{}, errWarSyntax
	}
	if dur > maxWarMinutes {
		return time.Time{}, time.Time{}, errWarTooLong
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
	if now.Minute() >= minute {
		start = start.Add(time.Hour)
	}
	return start, start.Add(time.Duration(dur) * time.Minute), nil
}

func parseDigits(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, errWarSyntax
	}
	return strconv.Atoi(s)
}

func wordwar(c *hooks.Context) []hooks.Update {
	start, end, err := parseWar(strings.TrimSpace(c.Args()), c.Now())
	switch {
	case errors.Is(err, errWarTooLong):
		c.RespondHighlight("Too many minutes.")
		return nil
	case err != nil:
		c.RespondHighlight("I don't understand.")
		return nil
	}
	w := &war{
		id:           c.Allocator().NextW(),
		start:        start,
		end:          end,
		participants: []string{c.Sender},
	}
	w.announce(c)
	c.RespondHighlight(fmt.Sprintf("Scheduled war with ID #%d.", w.id))

	return hooks.Batch(hooks.Register(c.Allocator(), "in", func(self hooks.M) hooks.Handler {
		return hooks.HandlerFunc(func(c *hooks.Context) []hooks.Update {
			if !c.Now().Before(w.start) {
				return hooks.Batch(hooks.Unregister(self))
			}
			if !w.join(c.Sender) {
				return nil
			}
			c.Cancel(w.startMsg)
			c.Cancel(w.endMsg)
			w.announce(c)
			c.RespondHighlight(fmt.Sprintf("You've been added to war #%d.", w.id))
			return nil
		})
	}))
}

func (w *war) join(user string) bool {
	for _, p := range w.participants {
		if strings.EqualFold(p, user) {
			return false
		}
	}
	w.participants = append(w.participants, user)
	return true
}

// announce schedules the start and stop messages for the current participants.
func (w *war) announce(c *hooks.Context) {
	who := strings.Join(w.participants, ", ")
	w.startMsg = c.RespondAt(who+": <b>START WRITING!</b>", w.start)
	w.endMsg = c.RespondAt(who+": <b>STOP WRITING!</b>", w.end)
}
