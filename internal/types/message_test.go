// internal/types/message_test.go
package types

import (
	"encoding/json"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	data := []byte(`{"type":"ai_message","session_id":"s1","message_id":"m1","content":"hello","is_partial":true}`)

	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != TypeAIMessage {
		t.Errorf("expected ai_message, got %q", msg.Type)
	}
	if msg.SessionID != "s1" || msg.MessageID != "m1" {
		t.Errorf("unexpected ids: %q %q", msg.SessionID, msg.MessageID)
	}
	if msg.Content != "hello" || !msg.IsPartial {
		t.Errorf("unexpected payload: %+v", msg)
	}
}

func TestDecodeMessage_Invalid(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}

func TestDecodeMessage_MissingType(t *testing.T) {
	// A frame without a discriminant still decodes; the store treats it
	// as an unknown type.
	msg, err := DecodeMessage([]byte(`{"content":"???"}`))
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != "" {
		t.Errorf("expected empty type, got %q", msg.Type)
	}
	if msg.Content != "???" {
		t.Errorf("expected content kept, got %q", msg.Content)
	}
}

func TestDecodeMessage_WrongTypedField(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"progress","percent":"40","status":"rendering"}`))
	if err != nil {
		t.Fatalf("wrong-typed field should not fail the frame: %v", err)
	}
	if msg.Percent != nil {
		t.Errorf("wrong-typed percent should read as absent, got %v", *msg.Percent)
	}
	if msg.Status != "rendering" {
		t.Errorf("later fields should still decode, got %q", msg.Status)
	}
	if !msg.Has("percent") {
		t.Error("the raw frame should still carry the field")
	}

	// The original bytes survive a round trip untouched.
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	if m["percent"] != "40" {
		t.Errorf("raw percent lost in round trip: %v", m["percent"])
	}
}

func TestDecodeMessage_WrongTypedSuccess(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"tool_result","tool":"script_writer","success":"yes","result":{"script_text":"x"}}`))
	if err != nil {
		t.Fatalf("wrong-typed success should not fail the frame: %v", err)
	}
	if msg.Success != nil {
		t.Errorf("wrong-typed success should read as absent, got %v", *msg.Success)
	}
	if msg.Tool != "script_writer" || msg.Result["script_text"] != "x" {
		t.Errorf("rest of the frame mangled: %+v", msg)
	}
}

func TestMessage_Has(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"progress","percent":0,"status":""}`))
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Has("percent") {
		t.Error("percent should be present even at zero")
	}
	if !msg.Has("status") {
		t.Error("status should be present even when empty")
	}
	if msg.Has("step") {
		t.Error("step should be absent")
	}
}

func TestMessage_Merge(t *testing.T) {
	first, err := DecodeMessage([]byte(`{"type":"ai_message","message_id":"m1","content":"Hel","is_partial":true,"step":"script"}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := DecodeMessage([]byte(`{"type":"ai_message","message_id":"m1","content":"Hello","is_partial":true}`))
	if err != nil {
		t.Fatal(err)
	}

	merged := first.Merge(second)
	if merged.Content != "Hello" {
		t.Errorf("expected merged content Hello, got %q", merged.Content)
	}
	// Field absent from the update is retained.
	if merged.Step != "script" {
		t.Errorf("expected step retained, got %q", merged.Step)
	}
	// Inputs untouched.
	if first.Content != "Hel" {
		t.Errorf("merge mutated receiver: %q", first.Content)
	}
}

func TestMessage_MergeUnknownFields(t *testing.T) {
	first, err := DecodeMessage([]byte(`{"type":"ai_message","message_id":"m1","confidence":0.9}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := DecodeMessage([]byte(`{"type":"ai_message","message_id":"m1","content":"done"}`))
	if err != nil {
		t.Fatal(err)
	}

	merged := first.Merge(second)
	data, err := json.Marshal(merged)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["confidence"] != 0.9 {
		t.Errorf("unknown field dropped by merge: %v", out["confidence"])
	}
	if out["content"] != "done" {
		t.Errorf("expected content from update, got %v", out["content"])
	}
}

func TestMessage_MarshalRoundTrip(t *testing.T) {
	data := []byte(`{"type":"tool_result","tool":"script_writer","success":true,"result":{"script_text":"hi"},"extra_field":[1,2]}`)
	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatal(err)
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatal(err)
	}
	if m["tool"] != "script_writer" {
		t.Errorf("tool lost in round trip: %v", m["tool"])
	}
	if _, ok := m["extra_field"]; !ok {
		t.Error("unknown field lost in round trip")
	}
}

func TestMessage_ConstructedInCode(t *testing.T) {
	yes := true
	msg := Message{Type: TypeToolResult, Tool: "video_processor", Success: &yes}
	if !msg.Has("tool") {
		t.Error("typed field should report present")
	}
	if msg.Has("result") {
		t.Error("omitted field should report absent")
	}

	merged := msg.Merge(Message{Type: TypeToolResult, Step: "assemble"})
	if merged.Tool != "video_processor" || merged.Step != "assemble" {
		t.Errorf("merge of constructed messages failed: %+v", merged)
	}
}
