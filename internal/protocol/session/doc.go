// Package session owns the dAmn session-level helpers.
//
// Ownership boundary:
// - handshake/login/join control packets
// - login and join reply interpretation
// - joined-room bookkeeping
// - retry/backoff and timeout defaults
package session
