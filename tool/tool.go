package tool

type Role string

const (
	RoleUser      Role = "user"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

type Metrics struct {
	Time float64 `json:"time"`
}

// Call is a tool invocation reported by the agent, either while streaming or
// as part of a stored run.
type Call struct {
	Role          Role           `json:"role,omitempty"`
	Content       *string        `json:"content"`
	ToolCallID    string         `json:"tool_call_id"`
	ToolName      string         `json:"tool_name"`
	ToolArgs      map[string]any `json:"tool_args,omitempty"`
	ToolCallError bool           `json:"tool_call_error"`
	Metrics       Metrics        `json:"metrics"`
	CreatedAt     int64          `json:"created_at"`
}

// Result returns the textual output of the call, empty if it has none yet.
func (c Call) Result() string {
	if c.Content == nil {
		return ""
	}
	return *c.Content
}
