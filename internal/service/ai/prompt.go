package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/bzik/backend/internal/model/chat"
	"github.com/zhouzirui/bzik/backend/internal/model/persona"
)

// DefaultHistoryLimit is how many stored turns accompany a new message upstream.
const DefaultHistoryLimit = 10

// PromptBuilder renders persona + history + query into one outbound message list.
type PromptBuilder struct {
	template     prompt.ChatTemplate
	historyLimit int
}

// NewPromptBuilder creates a builder sending at most historyLimit prior turns.
func NewPromptBuilder(historyLimit int) *PromptBuilder {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &PromptBuilder{
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.MessagesPlaceholder("history", true),
			schema.UserMessage("{query}"),
		),
		historyLimit: historyLimit,
	}
}

// Build returns a fresh message list for one request.
func (b *PromptBuilder) Build(ctx context.Context, p persona.Persona, history []chat.Turn, query string) ([]*schema.Message, error) {
	vars := map[string]any{
		"system":  SystemPrompt(p),
		"history": b.historyMessages(history),
		"query":   query,
	}
	messages, err := b.template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt: %w", err)
	}
	return messages, nil
}

// SystemPrompt returns the persona's instruction, or a basic one built from its
// profile when no prompt is configured.
func SystemPrompt(p persona.Persona) string {
	if instruction := strings.TrimSpace(p.Prompt); instruction != "" {
		return instruction
	}
	name := p.Name
	if name == "" {
		name = "Bzik"
	}
	if p.Tone == "" {
		return fmt.Sprintf("You are %s, a friendly voice assistant. Keep replies short.", name)
	}
	return fmt.Sprintf("You are %s, a friendly voice assistant. Your tone is %s. Keep replies short.", name, p.Tone)
}

func (b *PromptBuilder) historyMessages(turns []chat.Turn) []*schema.Message {
	recent := chat.Tail(chat.Clean(turns), b.historyLimit)

	history := make([]*schema.Message, 0, len(recent))
	for _, turn := range recent {
		switch turn.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return history
}
