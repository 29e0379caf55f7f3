package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"voicechat/internal/domain"
	"voicechat/internal/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true).
			PaddingRight(2)

	infoToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1)

	dangerToastStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("9")).
				Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if len(m.toasts) > 0 {
		b.WriteString(m.renderToasts())
		b.WriteString("\n")
	}
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.state.Pending {
		b.WriteString(m.spinner.View())
		b.WriteString(" Thinking...\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("enter send • ctrl+s speak/stop • ctrl+l clear • ctrl+c quit"))
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.title
	if m.state.Speaking {
		title += "  ♪ speaking"
	}
	return titleStyle.Render(title) + "\n" + strings.Repeat("─", max(m.width, 1))
}

func (m Model) renderToasts() string {
	blocks := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style := infoToastStyle
		if t.Kind == domain.NotificationDanger {
			style = dangerToastStyle
		}
		body := lipgloss.NewStyle().Bold(true).Render(t.Title)
		if t.Body != "" {
			body += "\n" + t.Body
		}
		blocks = append(blocks, style.Width(min(max(m.width-2, 20), 60)).Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Right, blocks...)
}

func (m Model) renderMessages() string {
	var b strings.Builder
	for _, msg := range m.state.Messages {
		if msg.IsUser {
			b.WriteString(userStyle.Render("you › "))
			b.WriteString(msg.Text)
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(m.renderReply(msg.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// renderReply shows structured replies as a heading/description table and
// everything else as markdown.
func (m Model) renderReply(text string) string {
	if sections := render.SplitSections(text); len(sections) > 0 {
		return m.renderSections(sections)
	}
	if strings.TrimSpace(text) == "" {
		return "…\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) renderSections(sections []render.Section) string {
	headingWidth := max(m.width/3, 12)
	descWidth := max(m.width-headingWidth-2, 20)

	rows := make([]string, 0, len(sections))
	for _, s := range sections {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			headingStyle.Width(headingWidth).Render(s.Heading),
			lipgloss.NewStyle().Width(descWidth).Render(s.Description),
		))
	}
	return fmt.Sprintf("%s\n", lipgloss.JoinVertical(lipgloss.Left, rows...))
}
