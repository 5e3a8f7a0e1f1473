package scanner

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	// DefaultDebounceWindow is the trailing-edge wait for buffered
	// keystroke input with no line terminator.
	DefaultDebounceWindow = 80 * time.Millisecond

	// DefaultDedupWindow collapses an identical token arriving within
	// this window of its own last acceptance. Distinct tokens inside the
	// window still pass through, in arrival order.
	DefaultDedupWindow = 450 * time.Millisecond

	// DefaultRearmDelay holds the delivery lane briefly after a forward
	// so a re-entrant event from the same physical scan cannot be
	// double-processed.
	DefaultRearmDelay = 20 * time.Millisecond

	// minTerminatedLen is the shortest terminator-confirmed token worth
	// forwarding; minBufferedLen the shortest debounce-confirmed one.
	minTerminatedLen = 2
	minBufferedLen   = 3
)

// state is the explicit re-entrancy guard, replacing the bare boolean
// flag pattern: Processing is entered for the duration of a forward and
// always released, even when the consumer panics.
type state int

const (
	stateIdle state = iota
	stateProcessing
)

// Options tunes a Normalizer. Zero values fall back to the defaults.
type Options struct {
	DebounceWindow time.Duration
	DedupWindow    time.Duration
	RearmDelay     time.Duration
	Now            func() time.Time
}

// Normalizer turns noisy input (hardware scanners emulating fast
// keystrokes, manual typing, camera decode callbacks) into at most one
// scan token delivery per physical scan.
type Normalizer struct {
	mu sync.Mutex

	buf      string
	st       state
	debounce *time.Timer

	lastToken   string
	lastTokenAt time.Time

	// lane serializes forwards so distinct tokens arriving close
	// together are delivered independently, in order.
	lane sync.Mutex

	debounceWindow time.Duration
	dedupWindow    time.Duration
	rearmDelay     time.Duration
	now            func() time.Time

	forward func(token string)
	// OnForwarded runs after each forward with the buffer already
	// cleared (the original UI reasserts scanner focus here).
	OnForwarded func()

	logger *zap.Logger
}

// New builds a Normalizer delivering tokens to forward. The forward
// callback may panic; the normalizer recovers, logs, and stays usable.
func New(forward func(token string), opts Options, logger *zap.Logger) *Normalizer {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = DefaultDebounceWindow
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	if opts.RearmDelay <= 0 {
		opts.RearmDelay = DefaultRearmDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Normalizer{
		debounceWindow: opts.DebounceWindow,
		dedupWindow:    opts.DedupWindow,
		rearmDelay:     opts.RearmDelay,
		now:            opts.Now,
		forward:        forward,
		logger:         logger,
	}
}

// Normalize strips control characters and trims surrounding whitespace.
// Tokens are ephemeral: produced per scan event, never stored.
func Normalize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}

// TextChanged feeds an incremental text-change event from the hidden
// scanner input. A line terminator marks scanner-terminated input and
// forwards immediately; otherwise a trailing-edge timer is armed and
// each further event supersedes the previous one.
func (n *Normalizer) TextChanged(text string) {
	if strings.ContainsAny(text, "\r\n") {
		n.mu.Lock()
		n.stopDebounceLocked()
		n.buf = ""
		n.mu.Unlock()

		token := Normalize(text)
		if len(token) >= minTerminatedLen {
			n.deliver(token)
		}
		return
	}

	n.mu.Lock()
	n.buf = text
	n.stopDebounceLocked()
	n.debounce = time.AfterFunc(n.debounceWindow, n.debounceFired)
	n.mu.Unlock()
}

// CodeDecoded feeds a discrete decoded-code event from the camera
// scanner.
func (n *Normalizer) CodeDecoded(code string) {
	token := Normalize(code)
	if len(token) >= minTerminatedLen {
		n.deliver(token)
	}
}

// Reset drops any buffered input and pending timer.
func (n *Normalizer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopDebounceLocked()
	n.buf = ""
}

// Processing reports whether a forward is currently in flight.
func (n *Normalizer) Processing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.st == stateProcessing
}

func (n *Normalizer) debounceFired() {
	n.mu.Lock()
	token := Normalize(n.buf)
	n.buf = ""
	n.mu.Unlock()

	if len(token) >= minBufferedLen {
		n.deliver(token)
	}
}

// deliver is the single funnel for all input sources. An identical
// token within the dedup window of its own last acceptance is dropped;
// everything else is forwarded serially in arrival order. The consumer
// runs outside n.mu, and the Processing state is released on every exit
// path including panics.
func (n *Normalizer) deliver(token string) {
	n.mu.Lock()
	now := n.now()
	if token == n.lastToken && now.Sub(n.lastTokenAt) < n.dedupWindow {
		n.mu.Unlock()
		return
	}
	n.lastToken = token
	n.lastTokenAt = now
	n.mu.Unlock()

	n.lane.Lock()
	n.setState(stateProcessing)

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("Scan consumer panicked",
				zap.Any("panic", r),
				zap.Int("token_len", len(token)),
			)
		}
		// Hold the lane briefly so a re-entrant event from the same
		// physical scan cannot be double-processed.
		time.Sleep(n.rearmDelay)
		n.setState(stateIdle)
		n.lane.Unlock()
		if n.OnForwarded != nil {
			n.OnForwarded()
		}
	}()

	n.forward(token)
}

func (n *Normalizer) setState(s state) {
	n.mu.Lock()
	n.st = s
	n.mu.Unlock()
}

func (n *Normalizer) stopDebounceLocked() {
	if n.debounce != nil {
		n.debounce.Stop()
		n.debounce = nil
	}
}
