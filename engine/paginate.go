package engine

// ============================================================================
// PAGINATION — remembers the last listing so "more" can continue it
// ============================================================================
// The pager stores fully rendered lines rather than row indices: the
// listing formats differ per action, and re-rendering on every page
// would re-run the aggregation. State is per Session, never global.
// ============================================================================

const pageSize = 5

// Pager holds the remaining lines of the last listing answer.
type Pager struct {
	lines   []string
	offset  int
	context string // tail of the listing header, e.g. "in Parañaque City"
}

// Set replaces the pager contents with a fresh listing.
func (p *Pager) Set(lines []string, context string) {
	p.lines = lines
	p.offset = 0
	p.context = context
}

// Advance marks the first n lines as shown.
func (p *Pager) Advance(n int) {
	p.offset += n
	if p.offset > len(p.lines) {
		p.offset = len(p.lines)
	}
}

// Next returns up to n unseen lines without advancing.
func (p *Pager) Next(n int) []string {
	if p.offset >= len(p.lines) {
		return nil
	}
	end := p.offset + n
	if end > len(p.lines) {
		end = len(p.lines)
	}
	return p.lines[p.offset:end]
}

// Remaining reports how many lines have not been shown yet.
func (p *Pager) Remaining() int {
	if p.offset >= len(p.lines) {
		return 0
	}
	return len(p.lines) - p.offset
}

// Context returns the stored header context.
func (p *Pager) Context() string { return p.context }

// Clear forgets the listing.
func (p *Pager) Clear() {
	p.lines = nil
	p.offset = 0
	p.context = ""
}

// Session carries the per-conversation engine state. Each caller owns
// one; the engine itself stays stateless and shareable.
type Session struct {
	Pager Pager
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{}
}
