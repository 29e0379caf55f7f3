package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
)

func TestParseHistoryPolicy(t *testing.T) {
	p, err := ParseHistoryPolicy("")
	require.NoError(t, err)
	require.Equal(t, HistoryNone, p)

	p, err = ParseHistoryPolicy(" FULL ")
	require.NoError(t, err)
	require.Equal(t, HistoryFull, p)

	_, err = ParseHistoryPolicy("last-two")
	require.Error(t, err)
}

func TestBuildPromptMessages_NonePolicyIgnoresHistory(t *testing.T) {
	history := []domain.Message{
		domain.UserMessage("earlier"),
		domain.AIMessage("earlier answer"),
	}
	msgs := buildPromptMessages(promptContext{policy: HistoryNone}, "now", history)
	require.Equal(t, []domain.ChatMessage{{Role: domain.RoleUser, Content: "now"}}, msgs)
}

func TestBuildPromptMessages_SystemPromptFirst(t *testing.T) {
	msgs := buildPromptMessages(promptContext{systemPrompt: "  Be brief.  "}, "now", nil)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.ChatMessage{Role: domain.RoleSystem, Content: "Be brief."}, msgs[0])
}

func TestBuildPromptMessages_FullPolicySkipsIncompleteTurns(t *testing.T) {
	history := []domain.Message{
		domain.UserMessage("What is Go?"),
		domain.AIMessage("A programming language."),
		domain.UserMessage("this one failed"),
		domain.UserMessage("Who made it?"),
		domain.AIMessage(""),
	}
	msgs := buildPromptMessages(promptContext{policy: HistoryFull}, "Is it fast?", history)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "What is Go?"},
		{Role: domain.RoleAssistant, Content: "A programming language."},
		{Role: domain.RoleUser, Content: "Is it fast?"},
	}, msgs)
}

func TestHistoryToPromptMessages_KeepsNewestTurns(t *testing.T) {
	var history []domain.Message
	for _, q := range []string{"q1", "q2", "q3"} {
		history = append(history, domain.UserMessage(q), domain.AIMessage("a"+q[1:]))
	}
	msgs := historyToPromptMessages(history, 2)
	require.Len(t, msgs, 4)
	require.Equal(t, "q2", msgs[0].Content)
	require.Equal(t, "a3", msgs[3].Content)
}
