package websocket

import (
	"encoding/json"
	"time"

	"github.com/dom/taskflow/internal/domain"
)

type MessageType string

const (
	// Client to Server
	MessageTypePing MessageType = "PING"

	// Server to Client
	MessageTypePong        MessageType = "PONG"
	MessageTypeConnected   MessageType = "CONNECTED"
	MessageTypeTaskCreated MessageType = MessageType(domain.TaskEventCreated)
	MessageTypeTaskUpdated MessageType = MessageType(domain.TaskEventUpdated)
	MessageTypeTaskDeleted MessageType = MessageType(domain.TaskEventDeleted)
	MessageTypeError       MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Server to Client payloads

type ConnectedPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type TaskEventPayload struct {
	TaskID  string       `json:"taskId"`
	UserID  string       `json:"userId"`
	ActorID string       `json:"actorId"`
	Task    *TaskPayload `json:"task,omitempty"`
}

type TaskPayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
	UserID      string  `json:"user_id"`
	UpdatedAt   string  `json:"updated_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newTaskEventMessage(event domain.TaskEvent) (*Message, error) {
	payload := TaskEventPayload{
		TaskID:  event.TaskID.String(),
		UserID:  event.OwnerID.String(),
		ActorID: event.ActorID.String(),
	}

	if t := event.Task; t != nil {
		tp := &TaskPayload{
			ID:          t.ID.String(),
			Title:       t.Title,
			Description: t.Description,
			Priority:    string(t.Priority),
			Status:      string(t.Status),
			UserID:      t.OwnerID.String(),
			UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if t.DueDate != nil {
			due := time.Time(*t.DueDate).Format("2006-01-02")
			tp.DueDate = &due
		}
		payload.Task = tp
	}

	return NewMessage(MessageType(event.Type), payload)
}
