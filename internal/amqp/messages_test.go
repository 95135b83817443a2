package amqp

import (
	"testing"
)

func TestExportRequestMessageRoundTrip(t *testing.T) {
	msg := NewExportRequestMessage("req-123", "Indore", "Premium", "")
	if msg.RequestedAt.IsZero() {
		t.Fatal("RequestedAt not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ExportRequestMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RequestID != "req-123" || got.City != "Indore" || got.Segment != "Premium" || got.Zone != "" {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.RequestedAt.Equal(msg.RequestedAt) {
		t.Fatalf("RequestedAt = %v, want %v", got.RequestedAt, msg.RequestedAt)
	}
}

func TestExportRequestMessageFromJSONInvalid(t *testing.T) {
	if _, err := ExportRequestMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}
