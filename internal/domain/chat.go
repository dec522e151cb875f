package domain

// RoleSystem marks the instruction message placed ahead of a conversation.
const RoleSystem = "system"

// ChatMessage is the provider-agnostic chat message shape used by the relay
// and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
