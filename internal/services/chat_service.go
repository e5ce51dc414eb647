package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"taskmate/internal/models"
	"taskmate/internal/tools"
)

// ErrModelInvocation marks a turn aborted because the model could not be
// reached or returned an unusable response.
var ErrModelInvocation = errors.New("model invocation failed")

const (
	fallbackResponse = "I didn't generate a response."
	truncationNotice = "I ran out of steps while working on that request. Some changes may " +
		"already have been applied. Ask me to list your tasks to see the current state."
)

// TurnOutcome is what one fully processed user message produces
type TurnOutcome struct {
	FinalText string
	Mutated   bool
}

// ChatService runs conversation turns: it feeds the message history to the
// model, dispatches any tool calls the model requests, and loops until the
// model answers with plain text or the iteration ceiling is reached.
type ChatService struct {
	invoker       ModelInvoker
	registry      *tools.Registry
	prompts       *PromptService
	history       *ConversationCache
	maxIterations int
}

// NewChatService creates the turn orchestrator
func NewChatService(invoker ModelInvoker, registry *tools.Registry, prompts *PromptService, history *ConversationCache, maxIterations int) *ChatService {
	if maxIterations <= 0 {
		maxIterations = 6
	}
	return &ChatService{
		invoker:       invoker,
		registry:      registry,
		prompts:       prompts,
		history:       history,
		maxIterations: maxIterations,
	}
}

// RunTurn processes one inbound user message to completion. Tool failures
// are fed back into the conversation; only a model invocation failure
// aborts the turn, wrapped in ErrModelInvocation.
func (s *ChatService) RunTurn(ctx context.Context, connID, userMessage string) (TurnOutcome, error) {
	start := time.Now()

	messages := []models.ChatMessage{
		{Role: "system", Content: s.prompts.SystemPrompt(time.Now())},
	}
	messages = append(messages, s.history.History(connID)...)
	messages = append(messages, models.ChatMessage{Role: "user", Content: userMessage})

	toolDefs := s.registry.List()
	mutated := false

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		log.Printf("🔄 [TURN] %s iteration %d/%d", connID, iteration+1, s.maxIterations)

		reply, err := s.invoker.Invoke(ctx, messages, toolDefs)
		if err != nil {
			if m := GetMetrics(); m != nil {
				m.RecordTurnError("model_invocation")
			}
			return TurnOutcome{}, fmt.Errorf("%w: %v", ErrModelInvocation, err)
		}

		if len(reply.ToolCalls) > 0 {
			log.Printf("🔧 [TURN] %s model requested %d tool call(s)", connID, len(reply.ToolCalls))

			// Echo the assistant's tool request back into the conversation,
			// then the results in the order the model asked for them
			messages = append(messages, models.ChatMessage{
				Role:      "assistant",
				Content:   reply.Content,
				ToolCalls: reply.ToolCalls,
			})

			for _, call := range reply.ToolCalls {
				result := s.dispatchCall(ctx, call)
				if result.Mutated {
					mutated = true
				}
				messages = append(messages, models.ChatMessage{
					Role:       "tool",
					ToolCallID: call.ID,
					Name:       call.Function.Name,
					Content:    result.Text,
				})
			}
			continue
		}

		return s.finishTurn(connID, userMessage, reply.Content, mutated, start), nil
	}

	// Ceiling reached: an expected bounded outcome, reported as ordinary text
	log.Printf("⚠️  [TURN] %s hit the %d-iteration ceiling, truncating", connID, s.maxIterations)
	return s.finishTurn(connID, userMessage, truncationNotice, mutated, start), nil
}

func (s *ChatService) dispatchCall(ctx context.Context, call models.ToolCall) tools.Result {
	args := map[string]interface{}{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Printf("❌ [TOOLS] Failed to parse arguments for %s: %v", call.Function.Name, err)
			return tools.Result{Text: fmt.Sprintf("Error parsing arguments: %v", err)}
		}
	}

	log.Printf("🔧 [TOOLS] Executing tool: %s", call.Function.Name)
	if m := GetMetrics(); m != nil {
		m.RecordToolDispatch(call.Function.Name)
	}
	return s.registry.Dispatch(ctx, call.Function.Name, args)
}

func (s *ChatService) finishTurn(connID, userMessage, finalText string, mutated bool, start time.Time) TurnOutcome {
	if finalText == "" {
		finalText = fallbackResponse
	}

	s.history.Append(connID,
		models.ChatMessage{Role: "user", Content: userMessage},
		models.ChatMessage{Role: "assistant", Content: finalText},
	)

	if m := GetMetrics(); m != nil {
		m.RecordTurn()
		m.RecordTurnLatency(time.Since(start).Seconds())
	}

	log.Printf("✅ [TURN] %s finished in %s (mutated=%v)", connID, time.Since(start).Round(time.Millisecond), mutated)
	return TurnOutcome{FinalText: finalText, Mutated: mutated}
}

// ForgetSession drops the conversation history for a disconnected session
func (s *ChatService) ForgetSession(connID string) {
	s.history.Forget(connID)
}
