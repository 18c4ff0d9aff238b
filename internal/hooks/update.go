package hooks

// Op is one registry mutation.
type Op int

const (
	OpAddMessage Op = iota + 1
	OpAddCommand
	OpAddJoin
	OpDropMessage
	OpDropJoin
)

func (o Op) String() string {
	switch o {
	case OpAddMessage:
		return "add_message"
	case OpAddCommand:
		return "add_command"
	case OpAddJoin:
		return "add_join"
	case OpDropMessage:
		return "drop_message"
	case OpDropJoin:
		return "drop_join"
	default:
		return "unknown"
	}
}

// Update is returned by handlers and applied after the dispatch pass that
// produced it.
type Update struct {
	Op      Op
	M       M
	J       J
	Word    string
	Handler Handler
}

// Register adds a trigger-gated command. ctor receives the new handle so the
// handler can unregister itself.
func Register(alloc *Allocator, word string, ctor func(M) Handler) Update {
	m := alloc.NextM()
	return Update{Op: OpAddCommand, M: m, Word: word, Handler: ctor(m)}
}

// RegisterMessage adds a handler for every message and action.
func RegisterMessage(alloc *Allocator, ctor func(M) Handler) Update {
	m := alloc.NextM()
	return Update{Op: OpAddMessage, M: m, Handler: ctor(m)}
}

// RegisterJoin adds a handler for every join.
func RegisterJoin(alloc *Allocator, ctor func(J) Handler) Update {
	j := alloc.NextJ()
	return Update{Op: OpAddJoin, J: j, Handler: ctor(j)}
}

func Unregister(m M) Update {
	return Update{Op: OpDropMessage, M: m}
}

func UnregisterJoin(j J) Update {
	return Update{Op: OpDropJoin, J: j}
}

// Batch is a convenience for handlers returning updates.
func Batch(updates ...Update) []Update {
	return updates
}
