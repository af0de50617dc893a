package transcript

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

const defaultWrapWidth = 80

// Markdown renders assistant output. Style accepts any glamour standard style
// name; an empty style disables markdown rendering.
func Markdown(content string, style string, width int) (string, error) {
	if style == "" {
		return content, nil
	}
	if width <= 0 {
		width = defaultWrapWidth
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	out, err := renderer.Render(content)
	if err != nil {
		return "", err
	}

	return strings.Trim(out, "\n"), nil
}
