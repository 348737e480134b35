package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/logging"
	"rhystmorgan/zterm/internal/send"
	"rhystmorgan/zterm/internal/utils"
	"rhystmorgan/zterm/internal/validation"
	"rhystmorgan/zterm/internal/wallet"
)

type SendField int

const (
	FieldAddress SendField = iota
	FieldAmount
	FieldMemo
)

const defaultBalanceRefresh = 15 * time.Second

type SendModel struct {
	form           *send.Form
	balanceRefresh time.Duration

	inputs  [3]textinput.Model
	focus   SendField
	spinner spinner.Model

	balance    *wallet.Balance
	balanceErr error
	refreshing bool

	feedbackMessage *FeedbackMessage
	terminalWidth   int
	terminalHeight  int
}

type BalanceUpdateMsg struct {
	Balance *wallet.Balance
	Error   error
}

type BalanceTickMsg struct{}

type SubmissionResultMsg struct {
	Submission send.Submission
	Outcome    send.Outcome
}

func NewSendModel(form *send.Form, balanceRefresh time.Duration) *SendModel {
	if balanceRefresh <= 0 {
		balanceRefresh = defaultBalanceRefresh
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))

	address := newInput("t1... or zs...", 128)
	address.Focus()

	amount := newInput("0.00000000", 32)
	memo := newInput("Optional memo (shielded only)", 0)

	return &SendModel{
		form:           form,
		balanceRefresh: balanceRefresh,
		inputs:         [3]textinput.Model{address, amount, memo},
		focus:          FieldAddress,
		spinner:        s,
	}
}

func newInput(placeholder string, limit int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Width = 64
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Accent))
	input.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text))
	return input
}

func (m SendModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refreshBalance(), m.scheduleBalanceRefresh())
}

func (m SendModel) Update(msg tea.Msg) (SendModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminalWidth = msg.Width
		m.terminalHeight = msg.Height
		return m, nil

	case BalanceTickMsg:
		if m.form.Closed() {
			return m, nil
		}
		cmds = append(cmds, m.scheduleBalanceRefresh())
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, m.refreshBalance())
		}
		return m, tea.Batch(cmds...)

	case BalanceUpdateMsg:
		m.refreshing = false
		if msg.Error != nil {
			m.balanceErr = msg.Error
		} else {
			m.balance = msg.Balance
			m.balanceErr = nil
		}
		return m, nil

	case spinner.TickMsg:
		if !m.form.Snapshot().InFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SubmissionResultMsg:
		if !m.form.Resolve(msg.Submission, msg.Outcome) {
			return m, nil
		}
		if msg.Outcome.Succeeded() {
			m.refreshing = true
			return m, m.refreshBalance()
		}
		var cmd tea.Cmd
		m.feedbackMessage, cmd = newFeedback(FeedbackError, "Transaction failed", 5*time.Second)
		return m, cmd

	case FeedbackTimeoutMsg:
		if m.feedbackMessage != nil && m.feedbackMessage.ShowTime.Equal(msg.ShowTime) {
			m.feedbackMessage = nil
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m SendModel) handleKey(msg tea.KeyMsg) (SendModel, tea.Cmd) {
	snapshot := m.form.Snapshot()

	// the progress dialog swallows input
	if snapshot.InFlight {
		return m, nil
	}

	if snapshot.State == send.StateSucceeded {
		switch msg.String() {
		case "enter", "esc":
			m.form.Acknowledge()
			m.resetInputs()
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		return m, m.moveFocus(1)

	case "shift+tab", "up":
		return m, m.moveFocus(-1)

	case "ctrl+x":
		m.form.FillMax()
		m.inputs[FieldAmount].SetValue(m.form.Snapshot().Draft.Amount)
		m.inputs[FieldAmount].CursorEnd()
		return m, nil

	case "ctrl+r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		return m, m.refreshBalance()

	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.syncField(m.focus)

	// the memo field may have just disappeared
	if m.focus == FieldMemo && !m.form.Snapshot().MemoVisible() {
		cmd = tea.Batch(cmd, m.setFocus(FieldAmount))
	}

	return m, cmd
}

func (m *SendModel) syncField(field SendField) {
	value := m.inputs[field].Value()
	switch field {
	case FieldAddress:
		m.form.SetAddress(strings.TrimSpace(value))
	case FieldAmount:
		m.form.SetAmount(value)
	case FieldMemo:
		m.form.SetMemo(value)
	}
}

func (m *SendModel) visibleFields() []SendField {
	if m.form.Snapshot().MemoVisible() {
		return []SendField{FieldAddress, FieldAmount, FieldMemo}
	}
	return []SendField{FieldAddress, FieldAmount}
}

func (m *SendModel) moveFocus(delta int) tea.Cmd {
	fields := m.visibleFields()

	current := 0
	for i, f := range fields {
		if f == m.focus {
			current = i
			break
		}
	}

	next := (current + delta + len(fields)) % len(fields)
	return m.setFocus(fields[next])
}

func (m *SendModel) setFocus(field SendField) tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = field
	return m.inputs[field].Focus()
}

func (m *SendModel) resetInputs() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.setFocus(FieldAddress)
}

func (m SendModel) submit() (SendModel, tea.Cmd) {
	sub, ok := m.form.Dispatch()
	if !ok {
		var cmd tea.Cmd
		m.feedbackMessage, cmd = newFeedback(FeedbackWarning, "Fix the highlighted fields before sending", 3*time.Second)
		return m, cmd
	}

	m.feedbackMessage = nil
	return m, tea.Batch(m.spinner.Tick, m.execute(sub))
}

func (m *SendModel) execute(sub send.Submission) tea.Cmd {
	form := m.form
	return func() tea.Msg {
		outcome := form.Execute(context.Background(), sub)
		return SubmissionResultMsg{Submission: sub, Outcome: outcome}
	}
}

func (m *SendModel) refreshBalance() tea.Cmd {
	form := m.form
	return func() tea.Msg {
		balance, err := form.LoadBalance(context.Background())
		return BalanceUpdateMsg{Balance: balance, Error: err}
	}
}

func (m *SendModel) scheduleBalanceRefresh() tea.Cmd {
	return tea.Tick(m.balanceRefresh, func(time.Time) tea.Msg {
		return BalanceTickMsg{}
	})
}

// Close stops balance polling and discards any outcome still in flight.
func (m *SendModel) Close() {
	logging.Debug("Closing send screen", zap.Bool("in_flight", m.form.Snapshot().InFlight))
	m.form.Close()
}

func (m SendModel) View() string {
	snapshot := m.form.Snapshot()

	containerStyle := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(utils.Colours.Border))

	var content strings.Builder

	content.WriteString(m.renderHeader())
	content.WriteString("\n\n")
	content.WriteString(m.renderBalance(snapshot))
	content.WriteString("\n\n")
	content.WriteString(m.renderForm(snapshot))
	content.WriteString("\n")
	content.WriteString(m.renderTotal(snapshot))

	if snapshot.LastError != "" {
		content.WriteString("\n\n")
		content.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(utils.Colours.Error)).
			Bold(true).
			Render(snapshot.LastError))
	}

	content.WriteString("\n\n")
	content.WriteString(m.renderHelpText())

	if m.feedbackMessage != nil {
		content.WriteString("\n\n")
		content.WriteString(renderFeedback(m.feedbackMessage))
	}

	result := containerStyle.Render(content.String())

	var dialog string
	switch {
	case snapshot.InFlight:
		dialog = m.renderProgressDialog()
	case snapshot.State == send.StateSucceeded:
		dialog = m.renderResultDialog(snapshot)
	default:
		return result
	}

	if m.terminalWidth == 0 || m.terminalHeight == 0 {
		return lipgloss.JoinVertical(lipgloss.Center, result, dialog)
	}
	return lipgloss.Place(m.terminalWidth, m.terminalHeight, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, result, dialog))
}

func (m SendModel) renderHeader() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Title)).
		Bold(true).
		Render("Send ZEC")
}

func (m SendModel) renderBalance(snapshot send.Snapshot) string {
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text)).Bold(true)

	var b strings.Builder
	switch {
	case m.balance != nil:
		b.WriteString(labelStyle.Render("Spendable: "))
		b.WriteString(valueStyle.Render(utils.FormatBalanceWithCommas(m.balance.Spendable)))
		if m.balance.Unconfirmed.IsPositive() {
			b.WriteString(labelStyle.Render(fmt.Sprintf("  (+%s pending)", utils.FormatBalance(m.balance.Unconfirmed))))
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  updated %s", utils.FormatTimeAgo(m.balance.LastUpdated))))
	case m.balanceErr != nil:
		b.WriteString(labelStyle.Render("Spendable: "))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Warning)).
			Render("unavailable"))
	default:
		b.WriteString(labelStyle.Render("Spendable: loading..."))
	}

	if m.balance != nil && m.balanceErr != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Warning)).
			Render("  (refresh failed)"))
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Fee: "))
	b.WriteString(valueStyle.Render(utils.FormatBalance(snapshot.Fee)))

	return b.String()
}

func (m SendModel) renderForm(snapshot send.Snapshot) string {
	var b strings.Builder

	b.WriteString(m.renderField("Recipient", FieldAddress, validation.FieldAddress, snapshot.Draft.Address, snapshot))
	if snapshot.Draft.Address != "" && snapshot.Category != validation.CategoryInvalid {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted)).
			Render(fmt.Sprintf("  %s address", snapshot.Category)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderField("Amount (ZEC)", FieldAmount, validation.FieldAmount, snapshot.Draft.Amount, snapshot))

	if snapshot.MemoVisible() {
		b.WriteString("\n")
		b.WriteString(m.renderField("Memo", FieldMemo, validation.FieldMemo, snapshot.Draft.Memo, snapshot))
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Muted)).
			Render(fmt.Sprintf("  %d/%d", len([]rune(snapshot.Draft.Memo)), validation.MaxMemoLength)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m SendModel) renderField(label string, field SendField, key, value string, snapshot send.Snapshot) string {
	labelColor := utils.Colours.Muted
	if m.focus == field {
		labelColor = utils.Colours.Accent
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(labelColor)).Bold(m.focus == field).Render(label))
	b.WriteString("\n")
	b.WriteString(m.inputs[field].View())
	b.WriteString("\n")

	// untouched fields stay quiet
	if value == "" {
		return b.String()
	}
	if fieldErr, found := snapshot.Validation.FieldError(key); found {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Error)).
			Render("  " + fieldErr.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m SendModel) renderTotal(snapshot send.Snapshot) string {
	amount, err := validation.ParseAmount(snapshot.Draft.Amount)
	if err != nil || !amount.IsPositive() {
		return ""
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Text)).
		Render("Total with fee: " + utils.FormatBalance(amount.Add(snapshot.Fee)))
}

func (m SendModel) renderHelpText() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Render("tab: next field • enter: send • ctrl+x: send max • ctrl+r: refresh balance • ctrl+c: quit")
}

func (m SendModel) renderProgressDialog() string {
	return dialogStyle(utils.Colours.Accent).Render(
		fmt.Sprintf("%s Submitting transaction...\n\nWaiting for the node to confirm the send.", m.spinner.View()))
}

func (m SendModel) renderResultDialog(snapshot send.Snapshot) string {
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Success)).Bold(true).
		Render("Transaction sent")

	body := fmt.Sprintf("%s\n\nTransaction ID:\n%s\n\nPress enter to continue", title, snapshot.LastTxID)
	return dialogStyle(utils.Colours.Success).Render(body)
}

func dialogStyle(border string) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Background(lipgloss.Color(utils.Colours.Dialog)).
		Padding(1, 2).
		Width(72)
}
