package views

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/logging"
	"rhystmorgan/zterm/internal/send"
	"rhystmorgan/zterm/internal/utils"
	"rhystmorgan/zterm/internal/wallet"
)

// StatusSource refreshes the node status shown in the status bar.
type StatusSource interface {
	Status(ctx context.Context) (wallet.NetworkStatus, error)
}

type AppModel struct {
	width         int
	height        int
	networkStatus wallet.NetworkStatus
	fromAddress   string
	statusSource  StatusSource
	statusRefresh time.Duration

	sendTransaction *SendModel
}

type AppOptions struct {
	NetworkStatus  wallet.NetworkStatus
	FromAddress    string
	BalanceRefresh time.Duration
	// Status is polled every BalanceRefresh when set.
	Status StatusSource
}

type StatusTickMsg struct{}

type StatusUpdateMsg struct {
	Status wallet.NetworkStatus
	Error  error
}

func NewAppModel(form *send.Form, opts AppOptions) *AppModel {
	refresh := opts.BalanceRefresh
	if refresh <= 0 {
		refresh = defaultBalanceRefresh
	}

	return &AppModel{
		networkStatus:   opts.NetworkStatus,
		fromAddress:     opts.FromAddress,
		statusSource:    opts.Status,
		statusRefresh:   refresh,
		sendTransaction: NewSendModel(form, opts.BalanceRefresh),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.sendTransaction.Init(), m.scheduleStatusRefresh())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.sendTransaction.Close()
			return m, tea.Quit
		}

	case StatusTickMsg:
		if m.statusSource == nil || m.sendTransaction.form.Closed() {
			return m, nil
		}
		return m, tea.Batch(m.refreshStatus(), m.scheduleStatusRefresh())

	case StatusUpdateMsg:
		m.networkStatus = msg.Status
		if msg.Error != nil {
			logging.Debug("Status refresh failed", zap.Error(msg.Error))
		}
		return m, nil
	}

	var cmd tea.Cmd
	*m.sendTransaction, cmd = m.sendTransaction.Update(msg)
	return m, cmd
}

func (m AppModel) refreshStatus() tea.Cmd {
	source := m.statusSource
	return func() tea.Msg {
		status, err := source.Status(context.Background())
		return StatusUpdateMsg{Status: status, Error: err}
	}
}

func (m AppModel) scheduleStatusRefresh() tea.Cmd {
	if m.statusSource == nil {
		return nil
	}
	return tea.Tick(m.statusRefresh, func(time.Time) tea.Msg {
		return StatusTickMsg{}
	})
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderStatusBar(), m.sendTransaction.View())

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m AppModel) renderStatusBar() string {
	status := m.networkStatus

	state := lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Error)).Render("● offline")
	if status.Connected {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Success)).Render("● connected")
	}

	details := fmt.Sprintf(" %s  height %d  from %s", status.Chain, status.BlockHeight, utils.FormatAddress(m.fromAddress, 8, 6))

	sync := ""
	if status.Connected && !status.Synced() {
		sync = lipgloss.NewStyle().Foreground(lipgloss.Color(utils.Colours.Warning)).
			Render(fmt.Sprintf("  syncing %.1f%% (%d/%d)", status.SyncProgress*100, status.BlockHeight, status.Headers))
	}

	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(utils.Colours.Muted)).
		Padding(0, 1).
		Render(state + details + sync)
}
