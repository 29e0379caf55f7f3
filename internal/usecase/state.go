package usecase

import "voicechat/internal/domain"

// ConversationState is the value owned by a Session. Transitions return a new
// state and copy the message slice, so a state handed out earlier is never
// changed afterwards.
type ConversationState struct {
	Messages []domain.Message
	Pending  bool
	Speaking bool
}

func (s ConversationState) withMessages(msgs []domain.Message) ConversationState {
	s.Messages = msgs
	return s
}

func (s ConversationState) cloneMessages(extra int) []domain.Message {
	out := make([]domain.Message, len(s.Messages), len(s.Messages)+extra)
	copy(out, s.Messages)
	return out
}

// AppendUser adds a user-authored entry.
func (s ConversationState) AppendUser(text string) ConversationState {
	return s.withMessages(append(s.cloneMessages(1), domain.UserMessage(text)))
}

// AppendPlaceholder adds the empty AI entry that a reveal fills in.
func (s ConversationState) AppendPlaceholder() ConversationState {
	return s.withMessages(append(s.cloneMessages(1), domain.AIMessage("")))
}

// ReplaceTail rewrites the text of the trailing AI entry. User entries are
// never rewritten: the state is returned unchanged when the tail is missing
// or user-authored.
func (s ConversationState) ReplaceTail(text string) ConversationState {
	n := len(s.Messages)
	if n == 0 || s.Messages[n-1].IsUser {
		return s
	}
	msgs := s.cloneMessages(0)
	msgs[n-1].Text = text
	return s.withMessages(msgs)
}

// Seed installs the bootstrap reply. It only applies to an empty log.
func (s ConversationState) Seed(reply string) ConversationState {
	if len(s.Messages) != 0 {
		return s
	}
	return s.withMessages([]domain.Message{domain.AIMessage(reply)})
}

// Reset empties the log and clears both flags.
func (s ConversationState) Reset() ConversationState {
	return ConversationState{}
}

func (s ConversationState) WithPending(pending bool) ConversationState {
	s.Pending = pending
	return s
}

func (s ConversationState) WithSpeaking(speaking bool) ConversationState {
	s.Speaking = speaking
	return s
}

// Last returns the most recent entry, if any.
func (s ConversationState) Last() (domain.Message, bool) {
	if len(s.Messages) == 0 {
		return domain.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// UserCount reports how many entries were authored by the user.
func (s ConversationState) UserCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.IsUser {
			n++
		}
	}
	return n
}
