package transcript

import (
	"time"
)

// Status is the classified activity state of a session. Exactly one value
// per classification; statuses are never combined or weighted.
type Status int

const (
	// StatusUnknown: insufficient signal to decide.
	StatusUnknown Status = iota
	// StatusReady: the assistant process exists but no conversation has
	// produced meaningful entries yet (fresh or freshly reset session).
	StatusReady
	// StatusProcessing: the assistant is streaming, thinking or executing
	// tools.
	StatusProcessing
	// StatusIdle: the turn is complete and the assistant waits for input.
	StatusIdle
	// StatusWaiting: a tool invocation appears blocked on user approval.
	StatusWaiting
)

// String returns a short display name.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusProcessing:
		return "Processing"
	case StatusIdle:
		return "Idle"
	case StatusWaiting:
		return "Waiting"
	}
	return "Unknown"
}

// Icon returns a one-rune status indicator.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return "◇"
	case StatusProcessing:
		return "●"
	case StatusIdle:
		return "○"
	case StatusWaiting:
		return "◐"
	}
	return "?"
}

// Classification is a classifier verdict. Tools is set only for
// StatusWaiting and lists the invoked tool names in content order.
type Classification struct {
	Status Status
	Tools  []string
}

// DefaultWaitingTimeout is how long a tool invocation may go unanswered
// before it is presumed blocked on user approval rather than executing.
const DefaultWaitingTimeout = 10 * time.Second

// Options parameterize classification. The zero value means "now" and the
// default waiting timeout.
type Options struct {
	Now            time.Time
	WaitingTimeout time.Duration
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) waitingTimeout() time.Duration {
	if o.WaitingTimeout <= 0 {
		return DefaultWaitingTimeout
	}
	return o.WaitingTimeout
}

// toolResultLookback is how many entries before a tool_result are checked
// for an interrupt marker.
const toolResultLookback = 3

// ruleContext is the input to one classification pass: the full window,
// the index of the entry under judgment, and the options.
type ruleContext struct {
	entries []Entry
	idx     int
	opts    Options
}

func (c *ruleContext) entry() *Entry {
	return &c.entries[c.idx]
}

// rule is one row of the decision table: a named predicate that either
// produces a verdict or passes to the next row. Row order encodes priority:
// explicit completion and progress markers outrank content inspection.
type rule struct {
	name string
	eval func(c *ruleContext) (Classification, bool)
}

// rules is the ordered decision table. Evaluated top to bottom against the
// entry under judgment; the first hit wins.
var rules = []rule{
	{"progress", func(c *ruleContext) (Classification, bool) {
		if c.entry().IsProgress() && !c.entry().IsHookProgress() {
			return Classification{Status: StatusProcessing}, true
		}
		return Classification{}, false
	}},
	{"turn-complete", func(c *ruleContext) (Classification, bool) {
		if c.entry().IsTurnComplete() {
			return Classification{Status: StatusIdle}, true
		}
		return Classification{}, false
	}},
	{"assistant-end-turn", func(c *ruleContext) (Classification, bool) {
		if c.entry().IsEndTurn() {
			return Classification{Status: StatusIdle}, true
		}
		return Classification{}, false
	}},
	{"assistant-tool-use", func(c *ruleContext) (Classification, bool) {
		e := c.entry()
		if !e.IsToolUse() {
			return Classification{}, false
		}
		// A tool call older than the timeout with no completion signal
		// after it is presumed blocked on approval, not still executing.
		// An absent or unparseable timestamp skips the time branch.
		if ts, ok := e.Time(); ok {
			if c.opts.now().Sub(ts) > c.opts.waitingTimeout() {
				return Classification{Status: StatusWaiting, Tools: e.ToolNames()}, true
			}
		}
		return Classification{Status: StatusProcessing}, true
	}},
	{"assistant-no-tools", func(c *ruleContext) (Classification, bool) {
		if c.entry().Type == TypeAssistant {
			return Classification{Status: StatusIdle}, true
		}
		return Classification{}, false
	}},
	{"user-interrupt", func(c *ruleContext) (Classification, bool) {
		if c.entry().IsInterrupt() {
			return Classification{Status: StatusIdle}, true
		}
		return Classification{}, false
	}},
	{"user-tool-result", func(c *ruleContext) (Classification, bool) {
		if !c.entry().IsToolResult() {
			return Classification{}, false
		}
		// A tool result right after an interrupt is the tail of an
		// aborted turn, not the start of a new assistant response.
		for i := c.idx - 1; i >= 0 && i >= c.idx-toolResultLookback; i-- {
			if c.entries[i].IsInterrupt() {
				return Classification{Status: StatusIdle}, true
			}
		}
		return Classification{Status: StatusProcessing}, true
	}},
	{"user-message", func(c *ruleContext) (Classification, bool) {
		if c.entry().Type == TypeUser {
			return Classification{Status: StatusProcessing}, true
		}
		return Classification{}, false
	}},
	{"after-last-user", func(c *ruleContext) (Classification, bool) {
		lastUser := -1
		for i := len(c.entries) - 1; i >= 0; i-- {
			if c.entries[i].Type == TypeUser {
				lastUser = i
				break
			}
		}
		if lastUser < 0 {
			return Classification{}, false
		}
		after := c.entries[lastUser+1:]
		for i := range after {
			if after[i].IsTurnComplete() || after[i].IsEndTurn() {
				return Classification{Status: StatusIdle}, true
			}
		}
		for i := range after {
			if after[i].IsProgress() {
				return Classification{Status: StatusProcessing}, true
			}
		}
		return Classification{}, false
	}},
	{"assistant-streaming", func(c *ruleContext) (Classification, bool) {
		e := c.entry()
		if e.Type == TypeAssistant && e.Message != nil && e.Message.StopReason == nil {
			return Classification{Status: StatusProcessing}, true
		}
		return Classification{}, false
	}},
}

// Classify maps a chronological window of transcript entries to a status.
// Pure, deterministic and total: it always returns a value and never errors.
//
// The last entry is judged first. When the last entry is internal
// bookkeeping it is transparent: the scan walks backward to the first
// non-internal entry and judges that one instead. A window of nothing but
// internal entries is a freshly reset session.
func Classify(entries []Entry, opts Options) Classification {
	if len(entries) == 0 {
		return Classification{Status: StatusUnknown}
	}

	idx := len(entries) - 1
	for idx >= 0 && entries[idx].IsInternal() {
		idx--
	}
	if idx < 0 {
		return Classification{Status: StatusReady}
	}

	ctx := &ruleContext{entries: entries, idx: idx, opts: opts}
	for _, r := range rules {
		if cls, ok := r.eval(ctx); ok {
			return cls
		}
	}
	return Classification{Status: StatusUnknown}
}
