package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCameraAccessRequest Action = "CAMERA_ACCESS_REQUEST"
	ActionCameraAvailability  Action = "CAMERA_AVAILABILITY"
)

const messageType = "MESSAGE"

type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Action    Action    `json:"action"`
	AssetID   string    `json:"asset_id"`
	Message   string    `json:"message"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessage(
	action Action,
	assetID string,
	text string,
) Message {
	return Message{
		ID:        uuid.NewString(),
		Type:      messageType,
		Action:    action,
		AssetID:   assetID,
		Message:   text,
		CreatedAt: time.Now().UTC(),
	}
}

func (m Message) Encode() (string, error) {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}
