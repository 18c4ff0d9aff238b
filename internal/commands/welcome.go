package commands

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/marsipan/internal/hooks"
)

func welcomeKey(user string) string {
	return "welcome:" + strings.ToLower(user)
}

// welcome greets a joining user with their stored message, if any.
func welcome(c *hooks.Context) []hooks.Update {
	st := c.Store()
	if st == nil {
		return nil
	}
	body, ok, err := st.Get(c.Context(), welcomeKey(c.Sender))
	if err != nil {
		log.Warn().Err(err).Str("user", c.Sender).Msg("welcome lookup failed")
		return nil
	}
	if ok && body != "" {
		c.Respond(body)
	}
	return nil
}

// setWelcome stores (or with no text, clears) the sender's greeting.
func setWelcome(c *hooks.Context) []hooks.Update {
	st := c.Store()
	if st == nil {
		c.RespondHighlight("Welcomes are not enabled.")
		return nil
	}
	text := strings.TrimSpace(c.Args())
	key := welcomeKey(c.Sender)
	if text == "" {
		if err := st.Delete(c.Context(), key); err != nil {
			log.Warn().Err(err).Str("user", c.Sender).Msg("welcome delete failed")
			c.RespondHighlight("Could not clear your welcome.")
			return nil
		}
		c.RespondHighlight("Welcome cleared.")
		return nil
	}
	if err := st.Set(c.Context(), key, text); err != nil {
		log.Warn().Err(err).Str("user", c.Sender).Msg("welcome store failed")
		c.RespondHighlight("Could not save your welcome.")
		return nil
	}
	c.RespondHighlight("Welcome saved.")
	return nil
}
