package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/domain"
	"github.com/dom/taskflow/internal/logging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, role domain.Role) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, sendBuffer),
		claims: &auth.Claims{UserID: uuid.New(), Role: role},
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(logging.Discard())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliversOnlyToOwnerAndAdmins(t *testing.T) {
	hub := startHub(t)

	owner := newTestClient(hub, domain.RoleUser)
	other := newTestClient(hub, domain.RoleUser)
	admin := newTestClient(hub, domain.RoleAdmin)
	for _, c := range []*Client{owner, other, admin} {
		hub.Register(c)
	}

	taskID := uuid.New()
	hub.Publish(domain.TaskEvent{
		Type:    domain.TaskEventCreated,
		TaskID:  taskID,
		OwnerID: owner.claims.UserID,
		ActorID: admin.claims.UserID,
		Task: &domain.Task{
			ID:       taskID,
			Title:    "Write report",
			Priority: domain.PriorityHigh,
			Status:   domain.TaskStatusPending,
			OwnerID:  owner.claims.UserID,
		},
	})

	for _, c := range []*Client{owner, admin} {
		msg := receive(t, c)
		assert.Equal(t, MessageTypeTaskCreated, msg.Type)

		var payload TaskEventPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, taskID.String(), payload.TaskID)
		assert.Equal(t, owner.claims.UserID.String(), payload.UserID)
		require.NotNil(t, payload.Task)
		assert.Equal(t, "Write report", payload.Task.Title)
		assert.Equal(t, "high", payload.Task.Priority)
	}
	assertNothing(t, other)
}

func TestHub_DeleteEventWithoutSnapshot(t *testing.T) {
	hub := startHub(t)

	owner := newTestClient(hub, domain.RoleUser)
	hub.Register(owner)

	hub.Publish(domain.TaskEvent{
		Type:    domain.TaskEventDeleted,
		TaskID:  uuid.New(),
		OwnerID: owner.claims.UserID,
		ActorID: owner.claims.UserID,
	})

	msg := receive(t, owner)
	assert.Equal(t, MessageTypeTaskDeleted, msg.Type)

	var payload TaskEventPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Nil(t, payload.Task)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)

	slow := newTestClient(hub, domain.RoleAdmin)
	hub.Register(slow)
	require.Equal(t, 1, hub.ClientCount())

	for i := 0; i < sendBuffer+1; i++ {
		hub.Publish(domain.TaskEvent{Type: domain.TaskEventUpdated, TaskID: uuid.New(), OwnerID: uuid.New()})
	}

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)

	c := newTestClient(hub, domain.RoleUser)
	hub.Register(c)
	hub.Unregister(c)

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_StopClosesClientsAndIgnoresLatePublish(t *testing.T) {
	hub := NewHub(logging.Discard())
	go hub.Run()

	c := newTestClient(hub, domain.RoleUser)
	hub.Register(c)

	hub.Stop()
	hub.Stop()

	_, ok := <-c.send
	assert.False(t, ok)

	hub.Publish(domain.TaskEvent{Type: domain.TaskEventCreated, OwnerID: c.claims.UserID})
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestClient_PingPong(t *testing.T) {
	hub := NewHub(logging.Discard())
	c := newTestClient(hub, domain.RoleUser)

	c.handleMessage(&Message{Type: MessageTypePing})
	msg := receive(t, c)
	assert.Equal(t, MessageTypePong, msg.Type)

	c.handleMessage(&Message{Type: "NOPE"})
	msg = receive(t, c)
	assert.Equal(t, MessageTypeError, msg.Type)
}
