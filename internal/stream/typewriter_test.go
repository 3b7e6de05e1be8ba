package stream

import (
	"testing"

	"github.com/user/sclipsync/internal/types"
)

func aiMessage(content string, partial bool) types.Message {
	return types.Message{Type: types.TypeAIMessage, Content: content, IsPartial: partial}
}

func TestTypewriter_RevealsOneRunePerTick(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(aiMessage("héllo", false))

	if tw.Phase() != PhaseStreaming {
		t.Fatalf("phase = %v, want streaming", tw.Phase())
	}

	want := []string{"h", "hé", "hél", "héll", "héllo"}
	for i, expect := range want {
		more := tw.Tick()
		frame := tw.Frame()
		if frame.Displayed != expect {
			t.Fatalf("tick %d: displayed %q, want %q", i+1, frame.Displayed, expect)
		}
		if i < len(want)-1 && !more {
			t.Fatalf("tick %d: expected more ticks needed", i+1)
		}
	}
	if tw.Phase() != PhaseComplete {
		t.Errorf("phase after full reveal = %v, want complete", tw.Phase())
	}

	frame := tw.Frame()
	if !frame.Complete || frame.Streaming || frame.ShowCursor {
		t.Errorf("final frame wrong: %+v", frame)
	}
	if tw.Tick() {
		t.Error("Tick after completion should report no more work")
	}
}

func TestTypewriter_DeterministicForSameInput(t *testing.T) {
	run := func() []string {
		tw := New(nil)
		tw.SetMessage(aiMessage("abc", false))
		var frames []string
		for tw.Phase() == PhaseStreaming {
			tw.Tick()
			frames = append(frames, tw.Frame().Displayed)
		}
		return frames
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("frame %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestTypewriter_Skip(t *testing.T) {
	fired := 0
	tw := New(func() { fired++ })
	tw.SetMessage(aiMessage("a long message", false))
	tw.Tick()
	tw.Skip()

	frame := tw.Frame()
	if frame.Displayed != "a long message" || !frame.Complete || frame.ShowCursor {
		t.Errorf("frame after skip: %+v", frame)
	}
	if fired != 1 {
		t.Errorf("onComplete fired %d times, want 1", fired)
	}

	tw.Skip() // no-op once complete
	if fired != 1 {
		t.Errorf("second Skip refired completion, count = %d", fired)
	}
}

func TestTypewriter_CompletionFiresOnce(t *testing.T) {
	fired := 0
	tw := New(func() { fired++ })
	tw.SetMessage(aiMessage("ab", false))
	for tw.Tick() {
	}
	tw.Skip()
	tw.Finalize()
	if fired != 1 {
		t.Errorf("onComplete fired %d times, want 1", fired)
	}
}

func TestTypewriter_PartialShownVerbatim(t *testing.T) {
	tw := New(nil)

	tw.SetMessage(aiMessage("Hel", true))
	if got := tw.Frame().Displayed; got != "Hel" {
		t.Errorf("partial displayed %q, want verbatim text", got)
	}
	if tw.Tick() {
		t.Error("partial messages must not animate on Tick")
	}
	if got := tw.Frame().Displayed; got != "Hel" {
		t.Errorf("Tick mutated partial text to %q", got)
	}

	// Server grows the message.
	tw.SetMessage(aiMessage("Hello wor", true))
	if got := tw.Frame().Displayed; got != "Hello wor" {
		t.Errorf("grown partial displayed %q", got)
	}
	if tw.Phase() != PhaseStreaming {
		t.Errorf("phase = %v, want streaming while partial", tw.Phase())
	}
}

func TestTypewriter_FinalFrameAfterPartialCompletes(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(aiMessage("Hello wor", true))
	tw.SetMessage(aiMessage("Hello world", false))

	frame := tw.Frame()
	if !frame.Complete || frame.Displayed != "Hello world" {
		t.Errorf("final frame after partials should complete instantly, got %+v", frame)
	}
}

func TestTypewriter_Finalize(t *testing.T) {
	fired := 0
	tw := New(func() { fired++ })
	tw.SetMessage(aiMessage("streaming text", true))
	tw.Finalize()

	frame := tw.Frame()
	if !frame.Complete || frame.Displayed != "streaming text" {
		t.Errorf("frame after Finalize: %+v", frame)
	}
	if fired != 1 {
		t.Errorf("onComplete fired %d times, want 1", fired)
	}

	tw.Finalize() // no-op once complete
	if fired != 1 {
		t.Error("Finalize refired completion")
	}
}

func TestTypewriter_NonAIMessageCompletesInstantly(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(types.Message{Type: types.TypeThinking, Content: "pondering"})
	frame := tw.Frame()
	if !frame.Complete || frame.Displayed != "pondering" {
		t.Errorf("non-ai message should complete instantly, got %+v", frame)
	}
}

func TestTypewriter_EmptyContentCompletesInstantly(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(aiMessage("", false))
	if tw.Phase() != PhaseComplete {
		t.Errorf("empty content should complete instantly, phase = %v", tw.Phase())
	}
}

func TestTypewriter_ReplaceMidStreamResets(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(aiMessage("first message", false))
	tw.Tick()
	tw.Tick()

	tw.SetMessage(aiMessage("second", false))
	if got := tw.Frame().Displayed; got != "" {
		t.Errorf("replacement should reset reveal, displayed %q", got)
	}
	for tw.Tick() {
	}
	if got := tw.Frame().Displayed; got != "second" {
		t.Errorf("displayed %q after full reveal", got)
	}
}

func TestTypewriter_BlinkTick(t *testing.T) {
	tw := New(nil)
	tw.SetMessage(aiMessage("abc", false))

	if !tw.Frame().ShowCursor {
		t.Fatal("cursor should start visible while streaming")
	}
	tw.BlinkTick()
	if tw.Frame().ShowCursor {
		t.Error("BlinkTick should hide the cursor")
	}
	tw.BlinkTick()
	if !tw.Frame().ShowCursor {
		t.Error("BlinkTick should show the cursor again")
	}

	tw.Skip()
	tw.BlinkTick()
	if tw.Frame().ShowCursor {
		t.Error("cursor must stay hidden once complete")
	}
}
