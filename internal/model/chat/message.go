package chat

import "strings"

// Role 标识一轮对话的发言方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role+content unit of a stored conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Empty reports whether the turn carries no usable content.
func (t Turn) Empty() bool {
	return strings.TrimSpace(t.Content) == ""
}

// Clean returns a new slice without empty turns. The input is never modified.
func Clean(turns []Turn) []Turn {
	cleaned := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.Empty() {
			continue
		}
		cleaned = append(cleaned, turn)
	}
	return cleaned
}

// Tail returns a copy of the last n turns.
func Tail(turns []Turn, n int) []Turn {
	if n <= 0 {
		return []Turn{}
	}
	start := 0
	if len(turns) > n {
		start = len(turns) - n
	}
	tail := make([]Turn, len(turns)-start)
	copy(tail, turns[start:])
	return tail
}
