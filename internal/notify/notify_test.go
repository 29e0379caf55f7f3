package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"voicechat/internal/domain"
)

func TestLog_LevelFollowsKind(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(zerolog.New(&buf))

	l.Notify(domain.Notification{Kind: domain.NotificationInfo, Title: "Welcome to Desktop Embed Chat", Body: "Hi", Duration: 2 * time.Second})
	require.Contains(t, buf.String(), `"level":"info"`)
	require.Contains(t, buf.String(), `"message":"Welcome to Desktop Embed Chat"`)

	buf.Reset()
	l.Notify(domain.Notification{Kind: domain.NotificationDanger, Title: "Error sending message", Body: "429"})
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), `"body":"429"`)
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(1)
	var dropped []string
	q.OnDrop(func(n domain.Notification) { dropped = append(dropped, n.Title) })

	q.Notify(domain.Notification{Title: "first"})
	q.Notify(domain.Notification{Title: "second"})

	require.Equal(t, "first", (<-q.C()).Title)
	require.Equal(t, []string{"second"}, dropped)
}

func TestMulti(t *testing.T) {
	a, b := NewQueue(1), NewQueue(1)
	Multi{a, b}.Notify(domain.Notification{Title: "both"})
	require.Equal(t, "both", (<-a.C()).Title)
	require.Equal(t, "both", (<-b.C()).Title)
}
