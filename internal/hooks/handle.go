package hooks

import "sync/atomic"

// M identifies a message-class handler.
type M uint64

// J identifies a join-class handler.
type J uint64

// W identifies a word war.
type W uint64

// Allocator mints handles from one increasing counter. Handles are never
// reused for the allocator's lifetime.
type Allocator struct {
	next atomic.Uint64
}

func (a *Allocator) mint() uint64 {
	return a.next.Add(1)
}

func (a *Allocator) NextM() M { return M(a.mint()) }
func (a *Allocator) NextJ() J { return J(a.mint()) }
func (a *Allocator) NextW() W { return W(a.mint()) }
