//go:build integration

package test

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/sclipsync/internal/conn"
	"github.com/user/sclipsync/internal/devserver"
	"github.com/user/sclipsync/internal/record"
	"github.com/user/sclipsync/internal/store"
	"github.com/user/sclipsync/internal/types"
)

// TestEndToEnd runs the full client stack against the dev sidecar: connect,
// send a prompt, and watch the store accumulate the whole canned workflow.
func TestEndToEnd(t *testing.T) {
	srv := httptest.NewServer(devserver.New(nil))
	defer srv.Close()
	wsURL := "ws://" + strings.TrimPrefix(srv.URL, "http://")

	st := store.New()
	rec := record.New(t.TempDir())
	session := types.NewSessionID()

	m := conn.New(wsURL,
		func(msg types.Message) {
			if err := rec.Append(session, msg); err != nil {
				t.Errorf("record frame: %v", err)
			}
			st.Dispatch(msg)
		},
		conn.WithStatusFunc(st.SetConnectionStatus),
		conn.WithResume(func() types.MessageID { return st.Snapshot().LastMessageID }),
	)
	defer m.Close()

	done := make(chan struct{})
	var once sync.Once
	cancel := st.Subscribe(func(snap store.State) {
		for _, msg := range snap.Messages {
			if msg.Type == types.TypeWorkflowComplete {
				once.Do(func() { close(done) })
			}
		}
	})
	defer cancel()

	if err := m.Connect(session); err != nil {
		t.Fatal(err)
	}
	if err := m.Send(types.NewUserMessage("a video about sourdough")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("workflow never completed")
	}

	snap := st.Snapshot()
	if snap.Connection != types.StatusConnected {
		t.Errorf("connection = %v, want connected", snap.Connection)
	}
	if snap.CurrentScript() == "" {
		t.Error("no script extracted")
	}
	if len(snap.ProjectFiles) == 0 {
		t.Error("no project files extracted")
	}
	for _, f := range snap.ProjectFiles {
		if f.Type == types.FileScript {
			t.Errorf("script leaked into project files: %+v", f)
		}
	}
	if len(snap.VideoPreviews) == 0 {
		t.Error("no video preview extracted")
	}
	if snap.Progress.Percent != 100 {
		t.Errorf("final progress = %v, want 100", snap.Progress.Percent)
	}
	if len(snap.ToolCalls) == 0 || len(snap.ToolResults) == 0 {
		t.Error("tool journal empty")
	}

	// The streamed acknowledgement collapses into partials plus one final
	// frame; the final frame appends, so the id appears twice at most.
	var ackFrames int
	for _, msg := range snap.Messages {
		if msg.Type == types.TypeAIMessage {
			ackFrames++
		}
	}
	if ackFrames != 2 {
		t.Errorf("expected merged partial plus final frame, got %d ai messages", ackFrames)
	}

	// The raw frame log replays into an equivalent state.
	frames, err := rec.Load(session)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) == 0 {
		t.Fatal("nothing recorded")
	}
	replayed := store.New()
	for _, msg := range frames {
		replayed.Dispatch(msg)
	}
	rsnap := replayed.Snapshot()
	if rsnap.CurrentScript() != snap.CurrentScript() {
		t.Error("replayed script differs from live script")
	}
	if len(rsnap.ProjectFiles) != len(snap.ProjectFiles) {
		t.Errorf("replayed %d files, live %d", len(rsnap.ProjectFiles), len(snap.ProjectFiles))
	}
}
