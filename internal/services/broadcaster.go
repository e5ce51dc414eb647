package services

import (
	"context"
	"log"

	"taskmate/internal/models"
)

// Broadcaster fans turn outcomes out to sessions: the conversational reply
// goes to the originating session only, task snapshots go to everyone.
type Broadcaster struct {
	manager *ConnectionManager
	store   *TaskStore
	pubsub  *TaskPubSub // nil when Redis is not configured
}

// NewBroadcaster creates a broadcaster over the given sessions and store
func NewBroadcaster(manager *ConnectionManager, store *TaskStore) *Broadcaster {
	return &Broadcaster{
		manager: manager,
		store:   store,
	}
}

// AttachPubSub starts relaying snapshots to and from other instances.
// Remote snapshots are re-broadcast locally as ordinary task updates.
func (b *Broadcaster) AttachPubSub(pubsub *TaskPubSub) error {
	if err := pubsub.Start(func(tasks []models.Task) {
		b.manager.Broadcast(models.SnapshotMessage(models.MsgTaskUpdate, tasks))
	}); err != nil {
		return err
	}
	b.pubsub = pubsub
	return nil
}

// SendInitialTasks delivers the current task list to a freshly connected
// session
func (b *Broadcaster) SendInitialTasks(ctx context.Context, connID string) error {
	tasks, err := b.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	b.manager.SendTo(connID, models.SnapshotMessage(models.MsgInitialTasks, tasks))
	return nil
}

// AfterTurn delivers a completed turn: the reply to the originating session,
// and, when store state changed, a fresh snapshot to every session
func (b *Broadcaster) AfterTurn(ctx context.Context, connID string, outcome TurnOutcome) {
	b.manager.SendTo(connID, models.TextMessage(models.MsgAgentResponse, outcome.FinalText))

	if outcome.Mutated {
		b.BroadcastSnapshot(ctx)
	}
}

// BroadcastSnapshot fetches the current task list and fans it out to every
// session, and to the other instances when pub/sub is attached
func (b *Broadcaster) BroadcastSnapshot(ctx context.Context) {
	tasks, err := b.store.Snapshot(ctx)
	if err != nil {
		log.Printf("❌ Failed to fetch task snapshot for broadcast: %v", err)
		return
	}

	delivered := b.manager.Broadcast(models.SnapshotMessage(models.MsgTaskUpdate, tasks))
	log.Printf("📦 Task update broadcast: %d tasks to %d session(s)", len(tasks), delivered)

	if m := GetMetrics(); m != nil {
		m.RecordBroadcast()
	}

	if b.pubsub != nil {
		if err := b.pubsub.PublishSnapshot(ctx, tasks); err != nil {
			log.Printf("⚠️  Failed to publish task update to other instances: %v", err)
		}
	}
}

// SendError delivers an error envelope to one session
func (b *Broadcaster) SendError(connID, message string) {
	b.manager.SendTo(connID, models.TextMessage(models.MsgError, message))
}
