package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finx/internal/core"
)

// SnapshotUpdatedMessage announces that a stored snapshot changed. It carries
// the headline figures for logging; consumers reload the blob for the rest.
type SnapshotUpdatedMessage struct {
	Key          string    `json:"key"`
	Version      int64     `json:"version"`
	RiskScore    int       `json:"riskScore"`
	FreeCashFlow float64   `json:"freeCashFlow"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewSnapshotUpdatedMessage builds the event for version of the blob at key.
func NewSnapshotUpdatedMessage(key string, version int64, s core.Snapshot) *SnapshotUpdatedMessage {
	return &SnapshotUpdatedMessage{
		Key:          key,
		Version:      version,
		RiskScore:    s.RiskScore,
		FreeCashFlow: s.FreeCashFlow,
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotUpdatedMessageFromJSON parses a message and rejects one without a key or version.
func SnapshotUpdatedMessageFromJSON(data []byte) (*SnapshotUpdatedMessage, error) {
	var msg SnapshotUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, errors.New("message has no key")
	}
	if msg.Version <= 0 {
		return nil, errors.New("message has no version")
	}
	return &msg, nil
}
