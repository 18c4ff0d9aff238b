// Package bridge runs the bot against a chat server.
//
// A Service owns the reconnect loop and the admin HTTP surface. Each TCP
// connection gets a Session: one reactor goroutine that owns a fresh hook
// Registry and delivery Queue, fed by a reader goroutine that only splits the
// stream into frames. Inbound packets and due deliveries are handled one at a
// time on the reactor.
package bridge
