package event

import (
	"testing"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		expected bool
	}{
		{"message received", TypeMessageReceived, true},
		{"request completed", TypeRequestCompleted, true},
		{"unknown", Type("session.exploded"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.IsValid(); got != tt.expected {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeMessageReceived, "ou_abc", map[string]interface{}{
		"text": "hello",
	})

	if evt.ID == "" {
		t.Error("NewEvent() should generate an ID")
	}
	if evt.CorrelationID == "" {
		t.Error("NewEvent() should generate a correlation ID")
	}
	if evt.Timestamp.IsZero() {
		t.Error("NewEvent() should set a timestamp")
	}
	if evt.RequesterID != "ou_abc" {
		t.Errorf("RequesterID = %v, want ou_abc", evt.RequesterID)
	}

	evt2 := NewEvent(TypeMessageReceived, "ou_abc", nil)
	if evt.ID == evt2.ID {
		t.Error("event IDs should be unique")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	evt := NewEventWithCorrelation(TypeRequestCompleted, "ou_abc", nil, "corr-123")
	if evt.CorrelationID != "corr-123" {
		t.Errorf("CorrelationID = %v, want corr-123", evt.CorrelationID)
	}
}

func TestEvent_GetPayloadString(t *testing.T) {
	evt := NewEvent(TypeMessageReceived, "ou_abc", map[string]interface{}{
		"text":  "receipt attached",
		"count": 3,
	})

	if got := evt.GetPayloadString("text"); got != "receipt attached" {
		t.Errorf("GetPayloadString(text) = %v, want 'receipt attached'", got)
	}
	if got := evt.GetPayloadString("count"); got != "" {
		t.Errorf("GetPayloadString(count) = %v, want empty for non-string", got)
	}
	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %v, want empty", got)
	}
}

func TestEvent_GetPayloadStrings(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		expected int
	}{
		{"string slice", map[string]interface{}{"files": []string{"a.png", "b.pdf"}}, 2},
		{"interface slice", map[string]interface{}{"files": []interface{}{"a.png", "b.pdf"}}, 2},
		{"mixed interface slice", map[string]interface{}{"files": []interface{}{"a.png", 7}}, 1},
		{"missing key", map[string]interface{}{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := NewEvent(TypeMessageReceived, "ou_abc", tt.payload)
			if got := evt.GetPayloadStrings("files"); len(got) != tt.expected {
				t.Errorf("GetPayloadStrings() returned %d entries, want %d", len(got), tt.expected)
			}
		})
	}
}

func TestEvent_GetPayloadMap(t *testing.T) {
	evt := NewEvent(TypeRequestCompleted, "ou_abc", map[string]interface{}{
		"fields": map[string]string{"merchant": "Sample Coffee Shop"},
		"loose":  map[string]interface{}{"total": "24.50", "n": 1},
	})

	fields := evt.GetPayloadMap("fields")
	if fields["merchant"] != "Sample Coffee Shop" {
		t.Errorf("GetPayloadMap(fields) = %v, want merchant entry", fields)
	}

	loose := evt.GetPayloadMap("loose")
	if len(loose) != 1 || loose["total"] != "24.50" {
		t.Errorf("GetPayloadMap(loose) = %v, want only string values", loose)
	}

	if got := evt.GetPayloadMap("missing"); got != nil {
		t.Errorf("GetPayloadMap(missing) = %v, want nil", got)
	}
}
