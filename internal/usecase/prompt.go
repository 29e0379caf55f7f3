package usecase

import (
	"fmt"
	"strings"

	"voicechat/internal/domain"
)

// HistoryPolicy decides which earlier turns are replayed to the completion
// backend with each prompt.
type HistoryPolicy string

const (
	// HistoryNone sends only the current prompt.
	HistoryNone HistoryPolicy = "none"
	// HistoryFull replays completed turns from the log, newest last.
	HistoryFull HistoryPolicy = "full"
)

const defaultMaxHistoryTurns = 10

// ParseHistoryPolicy accepts the config spelling of a policy. An empty value
// selects HistoryNone.
func ParseHistoryPolicy(s string) (HistoryPolicy, error) {
	switch HistoryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", HistoryNone:
		return HistoryNone, nil
	case HistoryFull:
		return HistoryFull, nil
	default:
		return "", fmt.Errorf("usecase: unknown history policy %q", s)
	}
}

type promptContext struct {
	systemPrompt string
	policy       HistoryPolicy
	maxTurns     int
}

// buildPromptMessages assembles the role-tagged request for prompt. history
// is the log as it was before the prompt was appended.
func buildPromptMessages(ctx promptContext, prompt string, history []domain.Message) []domain.ChatMessage {
	var messages []domain.ChatMessage
	if sp := strings.TrimSpace(ctx.systemPrompt); sp != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: sp})
	}

	if ctx.policy == HistoryFull {
		messages = append(messages, historyToPromptMessages(history, ctx.maxTurns)...)
	}

	return append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: prompt,
	})
}

// historyToPromptMessages keeps only completed turns: a user entry directly
// followed by a non-empty AI reply. A leading AI entry (the bootstrap
// greeting) is replayed on its own.
func historyToPromptMessages(history []domain.Message, maxTurns int) []domain.ChatMessage {
	if maxTurns <= 0 {
		maxTurns = defaultMaxHistoryTurns
	}

	var turns [][]domain.ChatMessage
	for i := 0; i < len(history); i++ {
		m := history[i]
		if !m.IsUser {
			if i == 0 && strings.TrimSpace(m.Text) != "" {
				turns = append(turns, []domain.ChatMessage{{Role: domain.RoleAssistant, Content: m.Text}})
			}
			continue
		}
		if i+1 >= len(history) || history[i+1].IsUser {
			continue
		}
		question := strings.TrimSpace(m.Text)
		answer := strings.TrimSpace(history[i+1].Text)
		i++
		if question == "" || answer == "" {
			continue
		}
		turns = append(turns, []domain.ChatMessage{
			{Role: domain.RoleUser, Content: question},
			{Role: domain.RoleAssistant, Content: answer},
		})
	}

	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	var out []domain.ChatMessage
	for _, t := range turns {
		out = append(out, t...)
	}
	return out
}
