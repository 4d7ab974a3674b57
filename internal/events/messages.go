package events

import (
	"encoding/json"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/record"
)

// RecordEvent is the message published for every record mutation.
type RecordEvent struct {
	Kind       models.Kind        `json:"kind"`
	Action     models.AuditAction `json:"action"`
	ID         uint               `json:"id"`
	Record     *record.Response   `json:"record,omitempty"` // nil on delete
	OccurredAt time.Time          `json:"occurredAt"`
}

func NewRecordEvent(ev record.ChangeEvent) *RecordEvent {
	msg := &RecordEvent{
		Kind:       ev.Kind,
		Action:     ev.Action,
		ID:         ev.ID,
		OccurredAt: time.Now().UTC(),
	}
	if ev.After != nil {
		res := record.ToResponse(*ev.After)
		msg.Record = &res
	}
	return msg
}

// RoutingKey is "<kind>.<action>", e.g. "expense.create".
func (m *RecordEvent) RoutingKey() string {
	return string(m.Kind) + "." + string(m.Action)
}

func (m *RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var msg RecordEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
