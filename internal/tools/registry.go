package tools

import (
	"context"
	"fmt"
	"sync"
)

// Tool represents a callable tool with its metadata and execution function
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Mutating    bool // create/update/delete change store state; list/filter never do
	Execute     ExecuteFunc
}

// ExecuteFunc is the function signature for tool execution.
// The error return is for infrastructure failures only; argument problems
// must come back as Result text.
type ExecuteFunc func(ctx context.Context, args map[string]interface{}) (Result, error)

// Result is what a tool execution hands back to the orchestrator
type Result struct {
	Text    string      // natural-language summary, always present
	Payload interface{} // created/updated Task or []Task when applicable
	Mutated bool        // true when store state actually changed
}

// Registry manages all available tools
type Registry struct {
	tools map[string]*Tool
	names []string
	mutex sync.RWMutex
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a new tool to the registry
func (r *Registry) Register(tool *Tool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	if tool.Execute == nil {
		return fmt.Errorf("tool %s must have an Execute function", tool.Name)
	}

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = tool
	r.names = append(r.names, tool.Name)
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// List returns all registered tools in OpenAI tool format, in registration order
func (r *Registry) List() []map[string]interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	tools := make([]map[string]interface{}, 0, len(r.names))
	for _, name := range r.names {
		tool := r.tools[name]
		tools = append(tools, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		})
	}
	return tools
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.tools)
}

// Dispatch runs a tool by name. Unknown names and execution failures come
// back as Result text fed into the conversation, never as an error the
// caller has to handle.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]interface{}) Result {
	tool, exists := r.Get(name)
	if !exists {
		return Result{Text: fmt.Sprintf("Tool %s not found", name)}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return Result{Text: fmt.Sprintf("Error executing %s: %v", name, err)}
	}

	// Read-only tools can never report a mutation
	if !tool.Mutating {
		result.Mutated = false
	}
	return result
}
