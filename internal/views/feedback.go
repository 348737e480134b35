package views

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rhystmorgan/zterm/internal/utils"
)

type FeedbackMessage struct {
	Type     FeedbackType
	Message  string
	Duration time.Duration
	ShowTime time.Time
}

type FeedbackType string

const (
	FeedbackSuccess FeedbackType = "success"
	FeedbackError   FeedbackType = "error"
	FeedbackWarning FeedbackType = "warning"
	FeedbackInfo    FeedbackType = "info"
)

type FeedbackTimeoutMsg struct {
	ShowTime time.Time
}

func newFeedback(feedbackType FeedbackType, message string, duration time.Duration) (*FeedbackMessage, tea.Cmd) {
	feedback := &FeedbackMessage{
		Type:     feedbackType,
		Message:  message,
		Duration: duration,
		ShowTime: time.Now(),
	}

	shown := feedback.ShowTime
	return feedback, tea.Tick(duration, func(time.Time) tea.Msg {
		return FeedbackTimeoutMsg{ShowTime: shown}
	})
}

func renderFeedback(feedback *FeedbackMessage) string {
	if feedback == nil {
		return ""
	}

	var color string
	switch feedback.Type {
	case FeedbackSuccess:
		color = utils.Colours.Success
	case FeedbackError:
		color = utils.Colours.Error
	case FeedbackWarning:
		color = utils.Colours.Warning
	case FeedbackInfo:
		color = utils.Colours.Accent
	default:
		color = utils.Colours.Text
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Background(lipgloss.Color(utils.Colours.Dialog)).
		Padding(0, 1).
		Bold(true).
		Render(feedback.Message)
}
