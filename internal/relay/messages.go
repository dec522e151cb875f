package relay

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"bootcamp-tutor/internal/domain"
)

//go:embed system_prompt.txt
var defaultSystemPrompt string

// DefaultSystemPrompt returns the instruction placed ahead of every conversation.
func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

// BuildMessages returns the system instruction followed by every element of
// the body's JSON array, byte-for-byte and in order. Elements are not
// inspected; the completion service decides what a valid message is.
func (s *Service) BuildMessages(body []byte) ([]json.RawMessage, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("relay: request body is not valid JSON")
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, errors.New("relay: request body must be a JSON array of messages")
	}

	system, err := json.Marshal(domain.ChatMessage{Role: domain.RoleSystem, Content: s.systemPrompt})
	if err != nil {
		return nil, fmt.Errorf("relay: marshal system instruction: %w", err)
	}

	messages := make([]json.RawMessage, 0, 1+int(parsed.Get("#").Int()))
	messages = append(messages, system)
	parsed.ForEach(func(_, m gjson.Result) bool {
		messages = append(messages, json.RawMessage(m.Raw))
		return true
	})
	return messages, nil
}
