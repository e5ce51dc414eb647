package services

import (
	"context"
	"testing"

	"taskmate/internal/models"
)

func drainMessages(conn *models.UserConnection) []models.ServerMessage {
	var msgs []models.ServerMessage
	for {
		select {
		case msg := <-conn.WriteChan:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestBroadcaster_AfterTurn_Mutated(t *testing.T) {
	store := newTestStore(t, "test_broadcast_mutated.db")
	cm := NewConnectionManager()
	b := NewBroadcaster(cm, store)

	origin := newTestConn("conn-1", 8)
	other := newTestConn("conn-2", 8)
	cm.Register(origin)
	cm.Register(other)

	ctx := context.Background()
	if err := store.Create(ctx, &models.Task{Title: "buy milk"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	b.AfterTurn(ctx, "conn-1", TurnOutcome{FinalText: "Done.", Mutated: true})

	originMsgs := drainMessages(origin)
	if len(originMsgs) != 2 {
		t.Fatalf("Expected reply plus snapshot for the origin, got %d messages", len(originMsgs))
	}
	if originMsgs[0].Type != models.MsgAgentResponse || originMsgs[0].Message != "Done." {
		t.Errorf("Expected agent_response first, got %s %q", originMsgs[0].Type, originMsgs[0].Message)
	}
	if originMsgs[1].Type != models.MsgTaskUpdate {
		t.Errorf("Expected task_update second, got %s", originMsgs[1].Type)
	}
	if originMsgs[1].Tasks == nil || len(*originMsgs[1].Tasks) != 1 {
		t.Error("Expected the snapshot to carry the task")
	}

	otherMsgs := drainMessages(other)
	if len(otherMsgs) != 1 {
		t.Fatalf("Expected only the snapshot for the other session, got %d messages", len(otherMsgs))
	}
	if otherMsgs[0].Type != models.MsgTaskUpdate {
		t.Errorf("Expected task_update, got %s", otherMsgs[0].Type)
	}
	if otherMsgs[0].Message != "" {
		t.Errorf("Expected no reply text for the other session, got %q", otherMsgs[0].Message)
	}
}

func TestBroadcaster_AfterTurn_ReadOnly(t *testing.T) {
	store := newTestStore(t, "test_broadcast_readonly.db")
	cm := NewConnectionManager()
	b := NewBroadcaster(cm, store)

	origin := newTestConn("conn-1", 8)
	other := newTestConn("conn-2", 8)
	cm.Register(origin)
	cm.Register(other)

	b.AfterTurn(context.Background(), "conn-1", TurnOutcome{FinalText: "You have no tasks.", Mutated: false})

	originMsgs := drainMessages(origin)
	if len(originMsgs) != 1 || originMsgs[0].Type != models.MsgAgentResponse {
		t.Fatalf("Expected only the reply for the origin, got %v", originMsgs)
	}

	if otherMsgs := drainMessages(other); len(otherMsgs) != 0 {
		t.Errorf("Expected nothing for the other session on a read-only turn, got %d messages", len(otherMsgs))
	}
}

func TestBroadcaster_SendInitialTasks(t *testing.T) {
	store := newTestStore(t, "test_broadcast_initial.db")
	cm := NewConnectionManager()
	b := NewBroadcaster(cm, store)

	conn := newTestConn("conn-1", 8)
	cm.Register(conn)

	if err := b.SendInitialTasks(context.Background(), "conn-1"); err != nil {
		t.Fatalf("SendInitialTasks failed: %v", err)
	}

	msgs := drainMessages(conn)
	if len(msgs) != 1 || msgs[0].Type != models.MsgInitialTasks {
		t.Fatalf("Expected an initial_tasks message, got %v", msgs)
	}
	// An empty store still sends an explicit empty list
	if msgs[0].Tasks == nil || len(*msgs[0].Tasks) != 0 {
		t.Error("Expected an empty task list, not a missing field")
	}
}

func TestBroadcaster_SendError(t *testing.T) {
	store := newTestStore(t, "test_broadcast_error.db")
	cm := NewConnectionManager()
	b := NewBroadcaster(cm, store)

	conn := newTestConn("conn-1", 8)
	cm.Register(conn)

	b.SendError("conn-1", "The assistant is temporarily unavailable. Please try again.")

	msgs := drainMessages(conn)
	if len(msgs) != 1 || msgs[0].Type != models.MsgError {
		t.Fatalf("Expected an error envelope, got %v", msgs)
	}
	if msgs[0].Tasks != nil {
		t.Error("Expected no tasks on an error envelope")
	}
}
