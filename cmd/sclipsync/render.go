package main

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/user/sclipsync/internal/store"
	"github.com/user/sclipsync/internal/stream"
	"github.com/user/sclipsync/internal/types"
)

// renderer narrates the stream in the terminal. AI text is animated with the
// typewriter; everything else prints as a one-line event. Output is
// append-only, so the typewriter redraw prints only newly revealed text.
type renderer struct {
	st         *store.Store
	speed      time.Duration
	blinkEvery time.Duration

	mu        sync.Mutex
	tw        *stream.Typewriter
	runner    *stream.Runner
	currentID types.MessageID
	printed   int
}

func newRenderer(st *store.Store, speed, blinkEvery time.Duration) *renderer {
	return &renderer{st: st, speed: speed, blinkEvery: blinkEvery}
}

// Render reacts to one inbound message.
func (r *renderer) Render(msg types.Message) {
	switch msg.Type {
	case types.TypeAIMessage, types.TypeConversational:
		r.renderText(msg)
	case types.TypeThinking:
		fmt.Println("[thinking]")
	case types.TypeToolCall:
		fmt.Printf("[tool] %s (%s) %s\n", msg.Tool, msg.Step, msg.Description)
	case types.TypeToolResult:
		if msg.Success != nil && *msg.Success {
			fmt.Printf("[tool done] %s (%s)\n", msg.Tool, msg.Step)
		} else {
			fmt.Printf("[tool failed] %s (%s): %s\n", msg.Tool, msg.Step, msg.ErrorText)
		}
	case types.TypeProgress:
		if msg.Percent != nil {
			fmt.Printf("[progress] %.0f%% %s\n", *msg.Percent, msg.Status)
		}
	case types.TypeError:
		fmt.Printf("[error] %s\n", r.st.Snapshot().Error)
	case types.TypeWorkflowComplete:
		r.Skip()
		if msg.Content != "" {
			fmt.Println(msg.Content)
		}
	case types.TypeConnectionEstablished:
		// Lifecycle noise; the status callback already reports it.
	}
}

// renderText animates or grows the current AI message. A non-partial frame
// sharing the id of the in-flight partial marks finality instead of
// starting a second animation.
func (r *renderer) renderText(msg types.Message) {
	r.mu.Lock()
	if msg.MessageID != "" && msg.MessageID == r.currentID && r.tw != nil {
		if msg.IsPartial {
			r.tw.SetMessage(msg)
			r.printFrameLocked()
		} else {
			r.tw.Finalize()
			r.printFrameLocked()
			r.endLineLocked()
		}
		r.mu.Unlock()
		return
	}

	old := r.flushCurrentLocked()
	r.currentID = msg.MessageID
	r.printed = 0
	r.tw = stream.New(nil)
	r.tw.SetMessage(msg)

	if msg.IsPartial {
		r.printFrameLocked()
		r.mu.Unlock()
		stopRunner(old)
		return
	}

	// Local reveal for a message that arrived whole.
	tw := r.tw
	runner := stream.NewRunner(tw, r.speed, r.blinkEvery, func(f stream.Frame) {
		r.mu.Lock()
		if r.tw != tw {
			r.mu.Unlock()
			return
		}
		r.printFrameLocked()
		if f.Complete {
			r.endLineLocked()
		}
		r.mu.Unlock()
	})
	r.runner = runner
	r.mu.Unlock()

	stopRunner(old)
	runner.Start()
}

// flushCurrentLocked completes and prints whatever is still animating and
// returns the runner that must be stopped once the lock is released.
func (r *renderer) flushCurrentLocked() *stream.Runner {
	old := r.runner
	r.runner = nil
	if r.tw != nil {
		r.tw.Skip()
		r.printFrameLocked()
		r.endLineLocked()
		r.tw = nil
	}
	return old
}

// printFrameLocked appends any newly revealed runes to the terminal.
func (r *renderer) printFrameLocked() {
	text := []rune(r.tw.Frame().Displayed)
	if r.printed < len(text) {
		fmt.Print(string(text[r.printed:]))
		r.printed = len(text)
	}
}

func (r *renderer) endLineLocked() {
	if r.printed > 0 {
		fmt.Println()
		r.printed = 0
	}
	r.currentID = ""
}

// Skip cuts the current animation short.
func (r *renderer) Skip() {
	r.mu.Lock()
	old := r.flushCurrentLocked()
	r.mu.Unlock()
	stopRunner(old)
}

// Stop tears down any live animation timers.
func (r *renderer) Stop() {
	r.Skip()
}

// stopRunner stops a runner outside the renderer lock; the runner's redraw
// callback takes that lock, so stopping under it would deadlock.
func stopRunner(run *stream.Runner) {
	if run != nil {
		run.Stop()
	}
}

// printStateSummary writes a snapshot overview, used by /state and replay.
func printStateSummary(out io.Writer, snap store.State) {
	fmt.Fprintf(out, "connection: %s\n", snap.Connection)
	if snap.Error != "" {
		fmt.Fprintf(out, "error: %s\n", snap.Error)
	}
	fmt.Fprintf(out, "messages: %d, tool calls: %d, tool results: %d\n",
		len(snap.Messages), len(snap.ToolCalls), len(snap.ToolResults))
	if snap.Progress.Percent > 0 || snap.Progress.Status != "" {
		fmt.Fprintf(out, "progress: %.0f%% %s (%s)\n",
			snap.Progress.Percent, snap.Progress.Status, snap.Progress.Step)
	}
	if script := snap.CurrentScript(); script != "" {
		fmt.Fprintf(out, "current script:\n%s\n", script)
	}
	if len(snap.ProjectFiles) > 0 {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tNAME\tSIZE\tURL")
		for _, f := range snap.ProjectFiles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.Type, f.Name, f.Size, f.URL)
		}
		w.Flush()
	}
	for _, p := range snap.VideoPreviews {
		fmt.Fprintf(out, "preview: %s (%s)\n", p.Path, p.Status)
	}
}
