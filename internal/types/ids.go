// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type MessageID string
type CorrelationID string
type FileID string
type ScriptID string
type PreviewID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.New().String())
}

func NewFileID() FileID {
	return FileID(uuid.New().String())
}

func NewScriptID() ScriptID {
	return ScriptID(uuid.New().String())
}

func NewPreviewID() PreviewID {
	return PreviewID(uuid.New().String())
}
