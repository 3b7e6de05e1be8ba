// Package store holds the client-side view of one agent workflow: the
// message log and every collection derived from it. All mutation funnels
// through Dispatch or a named mutator, each a single atomic transition, so
// readers only ever observe complete snapshots.
package store

import (
	"sync"

	"github.com/user/sclipsync/internal/types"
)

// fallbackError is surfaced when an error message carries no detail.
const fallbackError = "An unexpected error occurred"

// State is one immutable snapshot of the synchronized view.
type State struct {
	Messages      []types.Message
	ToolCalls     []types.ToolCall
	ToolResults   []types.ToolResult
	ProjectFiles  []types.ProjectFile
	Scripts       []types.ScriptContent
	VideoPreviews []types.VideoPreview
	Progress      types.Progress
	UserContext   types.UserContext
	Connection    types.ConnectionStatus
	Error         string
	SelectedFile  types.FileID
	LastMessageID types.MessageID
}

// Subscriber receives a state snapshot after every transition.
type Subscriber func(State)

// Store is the single source of truth for everything the stream produces.
// An explicitly constructed container rather than a package-level singleton,
// so tests and multiple sessions can hold independent instances.
type Store struct {
	mu    sync.RWMutex
	state State

	subMu  sync.RWMutex
	subs   map[int]Subscriber
	nextID int
}

// New creates an empty Store in the disconnected state.
func New() *Store {
	return &Store{
		state: State{Connection: types.StatusDisconnected},
		subs:  make(map[int]Subscriber),
	}
}

// Subscribe registers fn to be called with a snapshot after every state
// transition. The returned cancel func removes the subscription.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns a copy of the current state. Collections are copied so
// callers can never observe or cause a torn update.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

func (st State) clone() State {
	out := st
	out.Messages = append([]types.Message(nil), st.Messages...)
	out.ToolCalls = append([]types.ToolCall(nil), st.ToolCalls...)
	out.ToolResults = append([]types.ToolResult(nil), st.ToolResults...)
	out.ProjectFiles = append([]types.ProjectFile(nil), st.ProjectFiles...)
	out.Scripts = append([]types.ScriptContent(nil), st.Scripts...)
	out.VideoPreviews = append([]types.VideoPreview(nil), st.VideoPreviews...)
	if st.UserContext.Preferences != nil {
		prefs := make(map[string]any, len(st.UserContext.Preferences))
		for k, v := range st.UserContext.Preferences {
			prefs[k] = v
		}
		out.UserContext.Preferences = prefs
	}
	return out
}

// notify fans the given snapshot out to all subscribers. Called outside the
// state lock so a subscriber may call back into the store.
func (s *Store) notify(snap State) {
	s.subMu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// Dispatch applies one inbound message as a single atomic transition:
// append-or-replace into the log, then update whichever derived collections
// the message type touches. It never fails; messages with unrecognized or
// missing types degrade to a plain log append.
func (s *Store) Dispatch(msg types.Message) State {
	s.mu.Lock()
	s.appendOrReplace(msg)
	s.applyDerived(msg)
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
	return snap
}

// appendOrReplace implements the partial-update invariant: a partial message
// sharing a message_id with an earlier entry replaces that entry via shallow
// merge; everything else appends.
func (s *Store) appendOrReplace(msg types.Message) {
	if msg.MessageID != "" {
		s.state.LastMessageID = msg.MessageID
	}
	if msg.IsPartial && msg.MessageID != "" {
		for i := len(s.state.Messages) - 1; i >= 0; i-- {
			if s.state.Messages[i].MessageID == msg.MessageID {
				s.state.Messages[i] = s.state.Messages[i].Merge(msg)
				return
			}
		}
	}
	s.state.Messages = append(s.state.Messages, msg)
}

func (s *Store) applyDerived(msg types.Message) {
	switch msg.Type {
	case types.TypeToolCall:
		s.state.ToolCalls = append(s.state.ToolCalls, types.ToolCall{
			CorrelationID: s.callCorrelationID(msg),
			Tool:          msg.Tool,
			Args:          msg.Args,
			Step:          msg.Step,
			Description:   msg.Description,
			Timestamp:     msg.Timestamp,
		})
	case types.TypeToolResult:
		res := types.ToolResult{
			CorrelationID: s.resultCorrelationID(msg),
			Tool:          msg.Tool,
			Step:          msg.Step,
			Result:        msg.Result,
			Success:       msg.Success != nil && *msg.Success,
			Error:         msg.ErrorText,
			Timestamp:     msg.Timestamp,
		}
		s.state.ToolResults = append(s.state.ToolResults, res)
		if res.Success && msg.Result != nil {
			s.extractToolArtifacts(msg)
		}
	case types.TypeProgress:
		s.applyProgress(msg)
	case types.TypeError:
		switch {
		case msg.Detail != "":
			s.state.Error = msg.Detail
		case msg.Text != "":
			s.state.Error = msg.Text
		default:
			s.state.Error = fallbackError
		}
	case types.TypeAdaptive, types.TypeContextUpdate:
		s.mergePreferences(msg.Preferences)
	case types.TypeGUIUpdate:
		s.extractGUIUpdate(msg)
	}
	// Every other type, known or not, is log-append only.
}

// callCorrelationID honors an explicit call_id on the wire and otherwise
// mints a fresh id, so repeated calls to the same (tool, step) stay distinct.
func (s *Store) callCorrelationID(msg types.Message) types.CorrelationID {
	if msg.CallID != "" {
		return types.CorrelationID(msg.CallID)
	}
	return types.NewCorrelationID()
}

// resultCorrelationID joins a result back to its call: by explicit call_id
// when present, else to the earliest call with the same (tool, step) that
// has no result yet. The join is best-effort and may come up empty.
func (s *Store) resultCorrelationID(msg types.Message) types.CorrelationID {
	if msg.CallID != "" {
		return types.CorrelationID(msg.CallID)
	}
	resolved := make(map[types.CorrelationID]bool, len(s.state.ToolResults))
	for _, r := range s.state.ToolResults {
		if r.CorrelationID != "" {
			resolved[r.CorrelationID] = true
		}
	}
	for _, c := range s.state.ToolCalls {
		if c.Tool == msg.Tool && c.Step == msg.Step && !resolved[c.CorrelationID] {
			return c.CorrelationID
		}
	}
	return ""
}

// applyProgress overwrites the current progress value field-wise: fields
// absent from the event keep their previous value.
func (s *Store) applyProgress(msg types.Message) {
	if msg.Percent != nil {
		s.state.Progress.Percent = *msg.Percent
	}
	if msg.Has("status") {
		s.state.Progress.Status = msg.Status
	}
	if msg.Has("step") {
		s.state.Progress.Step = msg.Step
	}
}

// mergePreferences shallow-merges new preference keys into the user context,
// lifting the well-known style keys into their typed fields.
func (s *Store) mergePreferences(prefs map[string]any) {
	if len(prefs) == 0 {
		return
	}
	if s.state.UserContext.Preferences == nil {
		s.state.UserContext.Preferences = make(map[string]any, len(prefs))
	}
	for k, v := range prefs {
		s.state.UserContext.Preferences[k] = v
		if str, ok := v.(string); ok {
			switch k {
			case "style":
				s.state.UserContext.Style = str
			case "tone":
				s.state.UserContext.Tone = str
			case "length":
				s.state.UserContext.Length = str
			}
		}
	}
}

// SetConnectionStatus records the transport lifecycle state.
func (s *Store) SetConnectionStatus(status types.ConnectionStatus) {
	s.mu.Lock()
	s.state.Connection = status
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// SetError records a client-side error string. An empty string clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearMessages empties the message log and the tool call/result journals.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.state.Messages = nil
	s.state.ToolCalls = nil
	s.state.ToolResults = nil
	s.state.LastMessageID = ""
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// AddScript appends a script version produced outside the stream.
func (s *Store) AddScript(script types.ScriptContent) {
	s.mu.Lock()
	s.state.Scripts = append(s.state.Scripts, script)
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// AddProjectFile appends an artifact produced outside the stream.
func (s *Store) AddProjectFile(file types.ProjectFile) {
	s.mu.Lock()
	s.state.ProjectFiles = append(s.state.ProjectFiles, file)
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// AddVideoPreview appends a preview produced outside the stream.
func (s *Store) AddVideoPreview(preview types.VideoPreview) {
	s.mu.Lock()
	s.state.VideoPreviews = append(s.state.VideoPreviews, preview)
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// SelectFile marks one project file as selected for the presentation layer.
func (s *Store) SelectFile(id types.FileID) {
	s.mu.Lock()
	s.state.SelectedFile = id
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearScripts drops every stored script version.
func (s *Store) ClearScripts() {
	s.mu.Lock()
	s.state.Scripts = nil
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearScriptFiles purges any script-typed entries that slipped into the
// project file list.
func (s *Store) ClearScriptFiles() {
	s.mu.Lock()
	s.state.ProjectFiles = purgeScriptFiles(s.state.ProjectFiles)
	snap := s.state.clone()
	s.mu.Unlock()
	s.notify(snap)
}

// CurrentScript returns the script text the user should see: the most
// recent stored version, or empty when no script exists yet.
func (st State) CurrentScript() string {
	if n := len(st.Scripts); n > 0 {
		return st.Scripts[n-1].Content
	}
	return ""
}

func purgeScriptFiles(files []types.ProjectFile) []types.ProjectFile {
	kept := files[:0]
	for _, f := range files {
		if f.Type != types.FileScript {
			kept = append(kept, f)
		}
	}
	return kept
}
