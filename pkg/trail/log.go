package trail

// DefaultMaxDepth is the history bound given to new agents.
const DefaultMaxDepth = 64

// Log is a bounded FIFO of ops waiting to be replayed. Pushing beyond the
// bound discards the oldest entries first.
//
// Changing the bound takes effect on the next Push: shrinking it does not
// evict entries that are already buffered.
//
// Log is not safe for concurrent use; the registry serializes access.
type Log struct {
	ops      []Op
	maxDepth int
	nextSeq  uint64
	dropped  uint64
}

// NewLog creates an empty Log bounded to maxDepth entries. Negative values
// are treated as zero.
func NewLog(maxDepth int) *Log {
	return &Log{maxDepth: max(maxDepth, 0)}
}

// Push appends op, first truncating the front until at most maxDepth-1 ops
// remain. With a bound of zero nothing is buffered and op is counted as
// dropped. The pushed op's Seq is overwritten.
func (l *Log) Push(op Op) {
	op.Seq = l.nextSeq
	l.nextSeq++

	if l.maxDepth == 0 {
		l.dropped += uint64(len(l.ops)) + 1
		l.ops = l.ops[:0]
		return
	}

	if excess := len(l.ops) - (l.maxDepth - 1); excess > 0 {
		l.dropped += uint64(excess)
		l.ops = append(l.ops[:0:0], l.ops[excess:]...)
	}

	l.ops = append(l.ops, op)
}

// Drain removes and returns every buffered op in FIFO order.
func (l *Log) Drain() []Op {
	if len(l.ops) == 0 {
		return nil
	}
	out := l.ops
	l.ops = nil
	return out
}

// DrainTo removes every buffered op, calling fn on each in FIFO order.
func (l *Log) DrainTo(fn func(Op)) {
	for _, op := range l.Drain() {
		fn(op)
	}
}

// Len returns the number of buffered ops.
func (l *Log) Len() int { return len(l.ops) }

// MaxDepth returns the current bound.
func (l *Log) MaxDepth() int { return l.maxDepth }

// SetMaxDepth changes the bound. Negative values are treated as zero.
func (l *Log) SetMaxDepth(n int) { l.maxDepth = max(n, 0) }

// Dropped returns how many ops were discarded by truncation.
func (l *Log) Dropped() uint64 { return l.dropped }

// Ops returns a copy of the buffered ops without draining them.
func (l *Log) Ops() []Op {
	if len(l.ops) == 0 {
		return nil
	}
	cp := make([]Op, len(l.ops))
	copy(cp, l.ops)
	return cp
}

// Clone returns a deep copy of the log.
func (l *Log) Clone() *Log {
	return &Log{
		ops:      l.Ops(),
		maxDepth: l.maxDepth,
		nextSeq:  l.nextSeq,
		dropped:  l.dropped,
	}
}
