package contract

// Role tags a conversation message variant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleFunction carries a tool handler's output back into the history.
	RoleFunction Role = "function"
)

// Message is one entry of a session history. Order within a history is
// semantically significant: it is the literal context sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCall is set on assistant messages that request a tool execution.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// Tool and ToolCallID are set on function messages; Content then holds
	// the handler's serialized JSON payload.
	Tool       string `json:"tool,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is the model's request to execute a capability. Arguments is the
// raw string emitted by the model and must be decoded before use.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes one capability to the model. Parameters is a
// JSON-schema object contract. Specs are immutable after startup.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Completion is the model's decision for one invocation: exactly one of
// Content or ToolCall is meaningful, except the documented empty-content
// case where both are absent.
type Completion struct {
	Content  string
	ToolCall *ToolCall
}

// Client is the buyer data attached to an order.
type Client struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	DeliveryMode string `json:"delivery_mode"`
}

// Product is one order line item or search hit.
type Product struct {
	Name  string  `json:"name"`
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
}

// OrderRecord is one append-only entry of the order log. It is created
// exactly once per successful create_order dispatch and never mutated.
type OrderRecord struct {
	Action string    `json:"action"`
	ID     string    `json:"id"`
	Client Client    `json:"client"`
	Items  []Product `json:"items"`
}

// OrderAction tags every order log entry.
const OrderAction = "append_order"

// ProductMatch is one ranked hit from the similarity index.
type ProductMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// NewSystemMessage builds the fixed first message of a session history.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage builds a user utterance message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage builds a plain assistant reply.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolCallMessage builds the assistant message carrying a tool request.
func NewToolCallMessage(call ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCall: &call}
}

// NewFunctionMessage builds the function-result message for a dispatched
// tool call. payload must already be serialized JSON.
func NewFunctionMessage(call ToolCall, payload string) Message {
	return Message{
		Role:       RoleFunction,
		Tool:       call.Name,
		ToolCallID: call.ID,
		Content:    payload,
	}
}
