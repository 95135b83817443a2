package amqp

import (
	"encoding/json"
	"time"
)

// ExportRequestMessage asks the worker to write one derived-table
// export. The filter narrows the exported rows; empty fields match
// everything.
type ExportRequestMessage struct {
	RequestID   string    `json:"request_id"`
	City        string    `json:"city,omitempty"`
	Segment     string    `json:"segment,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewExportRequestMessage(requestID, city, segment, zone string) *ExportRequestMessage {
	return &ExportRequestMessage{
		RequestID:   requestID,
		City:        city,
		Segment:     segment,
		Zone:        zone,
		RequestedAt: time.Now(),
	}
}

func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
