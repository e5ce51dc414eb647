package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"taskmate/internal/models"
)

const taskUpdatesChannel = "taskmate:task_updates"

// taskUpdateEvent is the wire format for cross-instance snapshot fan-out
type taskUpdateEvent struct {
	InstanceID string        `json:"instance_id"`
	Tasks      []models.Task `json:"tasks"`
}

// TaskPubSub relays task snapshots between instances over Redis so clients
// connected to one instance see mutations made through another.
type TaskPubSub struct {
	redis      *RedisService
	pubsub     *redis.PubSub
	instanceID string
	onRemote   func(tasks []models.Task)
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewTaskPubSub creates a snapshot relay for this instance
func NewTaskPubSub(redisService *RedisService, instanceID string) *TaskPubSub {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskPubSub{
		redis:      redisService,
		instanceID: instanceID,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins listening for snapshots published by other instances.
// onRemote runs for every snapshot that originated elsewhere.
func (s *TaskPubSub) Start(onRemote func(tasks []models.Task)) error {
	s.onRemote = onRemote
	s.pubsub = s.redis.Client().Subscribe(s.ctx, taskUpdatesChannel)

	// Wait for subscription confirmation
	if _, err := s.pubsub.Receive(s.ctx); err != nil {
		return err
	}

	go s.processMessages()

	log.Printf("✅ [PUBSUB] Listening on %s (instance: %s)", taskUpdatesChannel, s.instanceID)
	return nil
}

func (s *TaskPubSub) processMessages() {
	ch := s.pubsub.Channel()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleMessage(msg)
		}
	}
}

func (s *TaskPubSub) handleMessage(msg *redis.Message) {
	var event taskUpdateEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.Printf("⚠️  [PUBSUB] Failed to unmarshal task update: %v", err)
		return
	}

	// Skip snapshots published by this instance (avoid loops)
	if event.InstanceID == s.instanceID {
		return
	}

	log.Printf("📡 [PUBSUB] Remote task update from %s (%d tasks)", event.InstanceID, len(event.Tasks))
	if s.onRemote != nil {
		s.onRemote(event.Tasks)
	}
}

// PublishSnapshot shares a local snapshot with the other instances
func (s *TaskPubSub) PublishSnapshot(ctx context.Context, tasks []models.Task) error {
	event := taskUpdateEvent{
		InstanceID: s.instanceID,
		Tasks:      tasks,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.redis.Client().Publish(ctx, taskUpdatesChannel, data).Err()
}

// Stop stops the relay
func (s *TaskPubSub) Stop() error {
	s.cancel()
	if s.pubsub != nil {
		return s.pubsub.Close()
	}
	return nil
}
