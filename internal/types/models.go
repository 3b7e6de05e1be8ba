// internal/types/models.go
package types

// ConnectionStatus is the lifecycle state of the session stream.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// ProjectFile kinds produced by the workflow tools.
const (
	FileVideo     = "video"
	FileAudio     = "audio"
	FileImage     = "image"
	FileScript    = "script"
	FileVoiceover = "voiceover"
)

// ToolCall is one recorded invocation of a workflow tool. Entries are never
// mutated; repeated calls to the same tool and step are distinct entries.
// The correlation id is minted at call time so a later result can be joined
// unambiguously even when (tool, step) repeats.
type ToolCall struct {
	CorrelationID CorrelationID  `json:"correlation_id"`
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args,omitempty"`
	Step          string         `json:"step,omitempty"`
	Description   string         `json:"description,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
}

// ToolResult is the outcome of a ToolCall. CorrelationID is filled from an
// explicit call_id on the wire when present, otherwise by matching the
// earliest unresolved call with the same (tool, step).
type ToolResult struct {
	CorrelationID CorrelationID  `json:"correlation_id,omitempty"`
	Tool          string         `json:"tool"`
	Step          string         `json:"step,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	Timestamp     string         `json:"timestamp,omitempty"`
}

// ProjectFile is one generated artifact (downloaded media, voiceover,
// assembled video). Script text never appears here; scripts live only in
// ScriptContent.
type ProjectFile struct {
	ID        FileID  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Path      string  `json:"path"`
	URL       string  `json:"url,omitempty"`
	Size      int64   `json:"size"`
	Timestamp string  `json:"timestamp,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Source    string  `json:"source,omitempty"`
}

// ScriptContent is one version of the generated script, append-only.
type ScriptContent struct {
	ID        ScriptID `json:"id"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp,omitempty"`
	Tool      string   `json:"tool,omitempty"`
}

// VideoPreview is an assembled video ready for playback.
type VideoPreview struct {
	ID        PreviewID `json:"id"`
	Path      string    `json:"path"`
	Timestamp string    `json:"timestamp,omitempty"`
	Status    string    `json:"status"`
	Thumbnail string    `json:"thumbnail,omitempty"`
}

// Progress is the single current workflow progress value. Each progress
// event overwrites it field-wise: fields absent from the event keep their
// previous value.
type Progress struct {
	Percent float64 `json:"percent"`
	Status  string  `json:"status,omitempty"`
	Step    string  `json:"step,omitempty"`
}

// UserContext carries the adaptive preferences the agent learns about the
// user. Preferences are shallow-merged, never replaced wholesale.
type UserContext struct {
	Style       string         `json:"style,omitempty"`
	Tone        string         `json:"tone,omitempty"`
	Length      string         `json:"length,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}
