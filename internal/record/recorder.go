// Package record persists the raw inbound frame stream to disk so a
// captured session can be replayed through a fresh store deterministically.
package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/sclipsync/internal/types"
)

// Recorder is a JSONL-backed append-only frame log, one file per session
// at sessions/<sessionID>/frames.jsonl.
type Recorder struct {
	root  string
	mu    sync.Mutex
	locks map[types.SessionID]*sync.Mutex
}

// New creates a Recorder rooted at the given directory.
func New(root string) *Recorder {
	return &Recorder{
		root:  root,
		locks: make(map[types.SessionID]*sync.Mutex),
	}
}

// getLock returns the per-session mutex, creating one if it doesn't exist.
func (r *Recorder) getLock(sessionID types.SessionID) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lock, ok := r.locks[sessionID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	r.locks[sessionID] = lock
	return lock
}

// FramesPath returns the frame log location for a session.
func (r *Recorder) FramesPath(sessionID types.SessionID) string {
	return filepath.Join(r.root, "sessions", string(sessionID), "frames.jsonl")
}

// Append adds one frame to the session's log.
func (r *Recorder) Append(sessionID types.SessionID, msg types.Message) error {
	lock := r.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(r.FramesPath(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	f, err := os.OpenFile(r.FramesPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open frames file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append frame: %w", err)
	}
	return nil
}

// Load reads every recorded frame for a session in order. A missing file
// reads as an empty session.
func (r *Recorder) Load(sessionID types.SessionID) ([]types.Message, error) {
	lock := r.getLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	return ReadFile(r.FramesPath(sessionID))
}

// ReadFile parses a frames.jsonl file. Malformed lines are skipped, not
// fatal, matching the stream's fail-open decode policy.
func ReadFile(path string) ([]types.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open frames file: %w", err)
	}
	defer f.Close()

	var frames []types.Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := types.DecodeMessage(line)
		if err != nil {
			continue
		}
		frames = append(frames, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan frames file: %w", err)
	}
	return frames, nil
}
