// internal/devserver/script.go
package devserver

import (
	"fmt"
	"time"

	"github.com/user/sclipsync/internal/types"
)

func now() string {
	return time.Now().Format("2006-01-02T15:04:05.000000")
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

// DefaultScript builds the canned workflow emitted in response to a user
// message: a streamed acknowledgement, a script draft, downloaded b-roll,
// a voiceover, and an assembled video.
func DefaultScript(prompt string) []types.Message {
	ack := fmt.Sprintf("Working on a video about %q. I'll draft the script first.", prompt)
	ackID := types.NewMessageID()

	msgs := []types.Message{
		{Type: types.TypeThinking, MessageID: types.NewMessageID(), Timestamp: now()},
	}

	// Stream the acknowledgement as growing partials under one message id.
	for _, cut := range []int{len(ack) / 3, 2 * len(ack) / 3} {
		msgs = append(msgs, types.Message{
			Type:      types.TypeAIMessage,
			MessageID: ackID,
			Timestamp: now(),
			IsPartial: true,
			Content:   ack[:cut],
		})
	}
	msgs = append(msgs, types.Message{
		Type:      types.TypeAIMessage,
		MessageID: ackID,
		Timestamp: now(),
		Content:   ack,
	})

	msgs = append(msgs,
		types.Message{
			Type:        types.TypeToolCall,
			MessageID:   types.NewMessageID(),
			Timestamp:   now(),
			Tool:        "script_writer",
			Step:        "script",
			Args:        map[string]any{"topic": prompt},
			Description: "Drafting the script",
		},
		types.Message{
			Type:      types.TypeToolResult,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Tool:      "script_writer",
			Step:      "script",
			Success:   boolPtr(true),
			Result: map[string]any{
				"script_text": fmt.Sprintf("[HOOK] %s\n[BODY] ...\n[CTA] Subscribe.", prompt),
			},
		},
		types.Message{
			Type:      types.TypeProgress,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Percent:   floatPtr(25),
			Status:    "script ready",
			Step:      "script",
		},
		types.Message{
			Type:        types.TypeToolCall,
			MessageID:   types.NewMessageID(),
			Timestamp:   now(),
			Tool:        "broll_finder",
			Step:        "broll",
			Args:        map[string]any{"query": prompt},
			Description: "Finding b-roll",
		},
		types.Message{
			Type:      types.TypeToolResult,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Tool:      "broll_finder",
			Step:      "broll",
			Success:   boolPtr(true),
			Result: map[string]any{
				"downloaded_files": []any{
					map[string]any{
						"name": "clip-1.jpg",
						"type": types.FileImage,
						"path": "/projects/dev/resources/broll/clip-1.jpg",
						"url":  "/api/projects/dev/broll/clip-1.jpg",
						"size": float64(2048),
					},
				},
			},
		},
		types.Message{
			Type:      types.TypeProgress,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Percent:   floatPtr(55),
			Status:    "media ready",
			Step:      "broll",
		},
		types.Message{
			Type:      types.TypeToolResult,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Tool:      "voiceover_generator",
			Step:      "voiceover",
			Success:   boolPtr(true),
			Result: map[string]any{
				"audio_path": "/projects/dev/resources/voiceover.mp3",
			},
		},
		types.Message{
			Type:       types.TypeGUIUpdate,
			MessageID:  types.NewMessageID(),
			Timestamp:  now(),
			UpdateType: "video_created",
			Data: map[string]any{
				"video_path": "/projects/dev/output/final.mp4",
			},
		},
		types.Message{
			Type:      types.TypeProgress,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Percent:   floatPtr(100),
			Status:    "done",
			Step:      "assemble",
		},
		types.Message{
			Type:      types.TypeWorkflowComplete,
			MessageID: types.NewMessageID(),
			Timestamp: now(),
			Content:   "Your video is ready.",
		},
	)
	return msgs
}
