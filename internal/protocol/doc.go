// Package protocol owns the dAmn wire grammar.
//
// Ownership boundary:
// - packet/submessage grammar (one reentrant routine for both)
// - packet encoding
// - body views (nested submessage, rendered text)
//
// Framing (splitting a byte stream at NUL) lives in protocol/frame.
package protocol
