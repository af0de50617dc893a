package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/ethai-cli/internal/application"
	"github.com/bnema/ethai-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	// MarkdownStyle is a glamour style name; empty prints assistant text as is.
	MarkdownStyle string
	Width         int
	Now           time.Time
}

func renderSession(session domain.Session, opts RenderOptions, s styles) (string, error) {
	header := fmt.Sprintf("session: %s  turns: %d", session.ID, session.Turns())
	if session.ModelID != nil {
		header += fmt.Sprintf("  model: %s", session.ModelID)
	}
	if !session.UpdatedAt.IsZero() {
		header += "  updated: " + formatAge(session.UpdatedAt, opts.Now)
	}

	lines := []string{s.title.Render("Conversation"), s.header.Render(header)}
	if len(session.Messages) == 0 {
		lines = append(lines, s.empty.Render("No messages yet."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...), nil
	}

	for _, message := range session.Messages {
		block, err := renderMessage(message, opts, s)
		if err != nil {
			return "", err
		}
		lines = append(lines, s.section.Render(block))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...), nil
}

func renderMessage(message domain.Message, opts RenderOptions, s styles) (string, error) {
	label := s.system
	switch message.Role {
	case domain.RoleUser:
		label = s.user
	case domain.RoleAssistant:
		label = s.assistant
	}

	content := message.Content
	if message.Role == domain.RoleAssistant {
		rendered, err := Markdown(content, opts.MarkdownStyle, opts.Width)
		if err != nil {
			return "", fmt.Errorf("render assistant message: %w", err)
		}
		content = rendered
	}

	return lipgloss.JoinVertical(lipgloss.Left, label.Render(string(message.Role)), s.content.Render(content)), nil
}

func renderSessions(sessions []domain.Session, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Sessions"), s.header.Render(fmt.Sprintf("sessions: %d", len(sessions)))}
	if len(sessions) == 0 {
		lines = append(lines, s.empty.Render("No sessions saved."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, session := range sessions {
		line := fmt.Sprintf("%s  %s", s.user.Render(string(session.ID)), s.meta.Render(fmt.Sprintf("%d turns", session.Turns())))
		if !session.UpdatedAt.IsZero() {
			line += s.meta.Render("  " + formatAge(session.UpdatedAt, opts.Now))
		}
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderHistory(records []domain.TransactionRecord, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Oracle requests"), s.header.Render(fmt.Sprintf("requests: %d", len(records)))}
	if len(records) == 0 {
		lines = append(lines, s.empty.Render("No requests recorded."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, record := range records {
		status := s.pending
		switch record.Status {
		case domain.TxStatusConfirmed:
			status = s.success
		case domain.TxStatusFailed:
			status = s.failure
		}

		parts := []string{status.Render(fmt.Sprintf("%-9s", record.Status)), record.TxHash.Hex()}
		if record.RequestID != nil {
			parts = append(parts, s.meta.Render("request "+record.RequestID.String()))
		}
		if !record.CreatedAt.IsZero() {
			parts = append(parts, s.meta.Render(formatAge(record.CreatedAt, opts.Now)))
		}
		line := strings.Join(parts, "  ")

		detail := record.Result
		if record.Error != "" {
			detail = record.Error
		}
		if detail != "" {
			line = lipgloss.JoinVertical(lipgloss.Left, line, s.content.Render(truncate(detail, 72)))
		}
		lines = append(lines, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderChallenge(outcome application.ChallengeOutcome, s styles) string {
	lines := []string{s.title.Render("Challenge")}

	for _, agent := range outcome.Agents {
		mark := s.failure.Render("✗")
		if agent.Won {
			mark = s.success.Render("✓")
		}
		line := fmt.Sprintf("%s %s", mark, s.user.Render(agent.Name))
		switch {
		case agent.Error != "":
			line += s.meta.Render("  error: " + agent.Error)
		case agent.Response == "":
			line += s.meta.Render("  no result")
		default:
			line += "  " + truncate(agent.Response, 72)
		}
		lines = append(lines, line)
	}

	if outcome.UserWins {
		lines = append(lines, s.section.Render(s.success.Render("You have won the challenge! Enjoy your reward!")))
	} else {
		lines = append(lines, s.section.Render(s.failure.Render("Sorry, you failed to make AI fall in love with you!")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(value string, max int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

func formatAge(at time.Time, now time.Time) string {
	if now.IsZero() {
		return at.UTC().Format(time.RFC3339)
	}

	age := now.Sub(at)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}
