// Package stream renders one logical message as either an instantaneous
// reveal or a cooperative typewriter animation. The state machine is pure
// and tick-driven so it can be tested without real timers; Runner drives it
// with wall-clock tickers for interactive use.
package stream

import (
	"sync"

	"github.com/user/sclipsync/internal/types"
)

// Phase is the per-message animation state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseComplete
)

// Frame is the presentation tuple consumed by whatever draws the message.
type Frame struct {
	Displayed  string
	Streaming  bool
	ShowCursor bool
	Complete   bool
}

// Typewriter animates one mounted message. Set a message, then advance it
// with Tick until complete, or cut the animation short with Skip. Replacing
// the message resets the machine mid-stream without leaking prior state.
type Typewriter struct {
	mu         sync.Mutex
	phase      Phase
	full       string
	displayed  []rune
	cursorOn   bool
	partial    bool
	onComplete func()
	fired      bool
}

// New creates an idle Typewriter. onComplete, if non-nil, is invoked exactly
// once when a message finishes revealing (including via Skip); it is never
// invoked for messages that complete instantly on SetMessage.
func New(onComplete func()) *Typewriter {
	return &Typewriter{onComplete: onComplete}
}

// SetMessage mounts a message, replacing whatever was animating.
//
// Only ai_message text animates. Anything else, and any message without
// text, completes instantly with its full text shown. A partial message
// displays its text verbatim as the server grows it and stays streaming
// with a cursor; a finalized message with full text completes instantly.
func (t *Typewriter) SetMessage(msg types.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasPartial := t.partial
	t.fired = false
	t.full = msg.Content
	t.partial = msg.IsPartial

	if msg.Type != types.TypeAIMessage || msg.Content == "" {
		t.completeLocked()
		return
	}
	if msg.IsPartial {
		// Server-side chunking: show the text as delivered, keep streaming.
		t.displayed = []rune(msg.Content)
		t.phase = PhaseStreaming
		t.cursorOn = true
		return
	}
	if wasPartial && t.phase == PhaseStreaming {
		// Final frame of a server-chunked message: nothing left to animate.
		t.completeLocked()
		return
	}
	t.displayed = nil
	t.phase = PhaseStreaming
	t.cursorOn = true
}

// Finalize marks a previously partial message as finished, jumping straight
// to complete with the full text.
func (t *Typewriter) Finalize() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseStreaming {
		t.completeLocked()
		t.fireLocked()
	}
}

// Tick reveals one more character. It is a no-op for partial messages
// (the server drives those) and outside the streaming phase. Returns true
// while more ticks are needed.
func (t *Typewriter) Tick() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseStreaming || t.partial {
		return false
	}
	full := []rune(t.full)
	if len(t.displayed) < len(full) {
		t.displayed = append(t.displayed, full[len(t.displayed)])
	}
	if len(t.displayed) >= len(full) {
		t.completeLocked()
		t.fireLocked()
		return false
	}
	return true
}

// Skip cuts the animation short: full text in one step, cursor hidden,
// complete. No-op unless streaming.
func (t *Typewriter) Skip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase != PhaseStreaming {
		return
	}
	t.completeLocked()
	t.fireLocked()
}

// BlinkTick toggles cursor visibility. Only meaningful while streaming; the
// cursor stays hidden once complete.
func (t *Typewriter) BlinkTick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseStreaming {
		t.cursorOn = !t.cursorOn
	}
}

// Frame returns the current presentation tuple.
func (t *Typewriter) Frame() Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Frame{
		Displayed:  string(t.displayed),
		Streaming:  t.phase == PhaseStreaming,
		ShowCursor: t.phase == PhaseStreaming && t.cursorOn,
		Complete:   t.phase == PhaseComplete,
	}
}

// Phase returns the current animation phase.
func (t *Typewriter) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

func (t *Typewriter) completeLocked() {
	t.displayed = []rune(t.full)
	t.phase = PhaseComplete
	t.cursorOn = false
	t.partial = false
}

func (t *Typewriter) fireLocked() {
	if t.onComplete != nil && !t.fired {
		t.fired = true
		fn := t.onComplete
		t.mu.Unlock()
		fn()
		t.mu.Lock()
	}
}
