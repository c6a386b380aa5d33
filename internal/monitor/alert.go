package monitor

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"motorpass/internal/queue"
	"motorpass/internal/track"
)

// MessageTypeOvertime marks alert-queue messages produced by the
// pipeline when an open presence record becomes flagged.
const MessageTypeOvertime = "overtime"

// Alert is the payload the worker consumes.
type Alert struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Name      string           `json:"name"`
	UserType  string           `json:"user_type"`
	Reason    track.FlagReason `json:"reason"`
	Since     time.Time        `json:"since"`
	FlaggedAt time.Time        `json:"flagged_at"`
}

// NewAlert builds an alert for a freshly flagged presence record.
func NewAlert(f track.FlaggedPresence, now time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		UserID:    f.UserID,
		Name:      f.Name,
		UserType:  string(f.UserType),
		Reason:    f.Reason,
		Since:     f.LastAction.OrderTime(),
		FlaggedAt: now,
	}
}

// Encode wraps the alert in a queue message.
func (a Alert) Encode() (queue.Message, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return queue.Message{}, err
	}
	return queue.Message{Type: MessageTypeOvertime, Body: raw}, nil
}

// DecodeAlert unpacks a queue message produced by Encode.
func DecodeAlert(msg queue.Message) (Alert, error) {
	var a Alert
	err := json.Unmarshal(msg.Body, &a)
	return a, err
}
