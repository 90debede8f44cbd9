package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried on the operations queue.
const (
	ActionApplied  = "applied"
	ActionReversed = "reversed"
)

// OperationEvent is a lightweight notification that an operation changed.
// It carries only the id and the action; the worker fetches the full
// operation from the database before exporting.
type OperationEvent struct {
	OperationID int64     `json:"operation_id"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewOperationEvent(operationID int64, action string) *OperationEvent {
	return &OperationEvent{
		OperationID: operationID,
		Action:      action,
		Timestamp:   time.Now(),
	}
}

func (m *OperationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OperationEventFromJSON(data []byte) (*OperationEvent, error) {
	var msg OperationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
