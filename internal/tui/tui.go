package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/flipside/internal/client"
	"github.com/lox/flipside/internal/game"
	"github.com/lox/flipside/internal/server"
)

// Model is the Bubble Tea model for the wagering client. All game state
// is event-driven from server broadcasts; the model never computes
// outcomes locally.
type Model struct {
	client *client.Client
	logger *log.Logger

	// UI components
	logViewport viewport.Model
	amountInput textinput.Model

	// Game state from server broadcasts
	participantID string
	history       []game.Outcome
	participants  []string
	headTotal     float64
	taleTotal     float64
	roundActive   bool
	endsAt        time.Time
	wagerPlaced   bool
	lastResult    *server.RoundSettledData

	// Input state
	side int // 0 = head, 1 = tale

	gameLog []string

	// Dimensions
	width       int
	height      int
	initialized bool

	quitting bool
}

// serverMsg wraps an incoming server message for the update loop.
type serverMsg struct {
	msg *server.Message
}

// disconnectedMsg signals that the connection to the server dropped.
type disconnectedMsg struct{}

// tickMsg drives the round countdown display.
type tickMsg time.Time

// New creates a TUI model wired to a connected client.
func New(cl *client.Client, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "Wager amount"
	ti.Focus()
	ti.CharLimit = 12
	ti.Width = 20
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &Model{
		client:      cl,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		amountInput: ti,
		gameLog:     []string{},
	}
}

// Init initializes the TUI model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForMessage(), m.tick())
}

// waitForMessage returns a command that delivers the next server message.
func (m *Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.client.Messages():
			return serverMsg{msg: msg}
		case <-m.client.Done():
			return disconnectedMsg{}
		}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case serverMsg:
		m.applyServerMessage(msg.msg)
		cmds = append(cmds, m.waitForMessage())

	case disconnectedMsg:
		m.addLog(ErrorStyle.Render("Disconnected from server"))
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)

	case tickMsg:
		cmds = append(cmds, m.tick())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			_ = m.client.Disconnect()
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "left", "right":
			m.side = 1 - m.side
		case "enter":
			m.submitWager()
		}
	}

	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	cmds = append(cmds, cmd)

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submitWager parses the amount input and sends a wager for the selected
// side. Validation errors are surfaced locally; rule rejections come back
// as error messages from the server.
func (m *Model) submitWager() {
	raw := strings.TrimSpace(m.amountInput.Value())
	if raw == "" {
		return
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount <= 0 {
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Invalid amount: %q", raw)))
		return
	}

	side := string(game.SideHead)
	if m.side == 1 {
		side = string(game.SideTale)
	}

	if err := m.client.PlaceWager(side, amount); err != nil {
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Failed to send wager: %v", err)))
		return
	}

	m.amountInput.SetValue("")
}

// applyServerMessage folds a server broadcast into the display state.
func (m *Model) applyServerMessage(msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeSnapshot:
		var data server.SnapshotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.logger.Error("Failed to parse snapshot", "error", err)
			return
		}
		m.participantID = data.ParticipantID
		m.client.SetParticipantID(data.ParticipantID)
		m.history = data.History
		m.participants = data.ActiveParticipants
		m.headTotal = data.HeadTotal
		m.taleTotal = data.TaleTotal
		m.roundActive = data.RoundActive
		if data.RoundActive {
			m.endsAt = data.StartTime.Add(time.Duration(data.Duration) * time.Millisecond)
		}
		m.addLog(InfoStyle.Render(fmt.Sprintf("Joined as %s", shortID(data.ParticipantID))))

	case server.MessageTypeRoundStarted:
		var data server.RoundStartedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.roundActive = true
		m.wagerPlaced = false
		m.lastResult = nil
		m.headTotal, m.taleTotal = 0, 0
		m.endsAt = data.StartTime.Add(time.Duration(data.Duration) * time.Millisecond)
		m.addLog(SuccessStyle.Render("Round started, place your wagers"))

	case server.MessageTypeWagerAccepted:
		var data server.WagerAcceptedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.headTotal = data.HeadTotal
		m.taleTotal = data.TaleTotal
		who := shortID(data.NewWager.ParticipantID)
		if data.NewWager.ParticipantID == m.participantID {
			who = "you"
			m.wagerPlaced = true
		}
		m.addLog(fmt.Sprintf("%s wagered %.2f on %s",
			who, data.NewWager.Amount, renderSide(data.NewWager.Side)))

	case server.MessageTypeRoundSettled:
		var data server.RoundSettledData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.roundActive = false
		m.history = data.History
		m.lastResult = &data
		m.addLog(WarningStyle.Render(fmt.Sprintf("Round settled: %s wins (streak %d, x%.2f)",
			strings.ToUpper(string(data.Winner)), data.Streak, data.Multiplier)))
		if pr, ok := data.PlayerResults[m.participantID]; ok {
			if pr.Won {
				m.addLog(SuccessStyle.Render(fmt.Sprintf("You won %.2f (bet %.2f)", pr.Amount, pr.OriginalBet)))
			} else {
				m.addLog(ErrorStyle.Render(fmt.Sprintf("You lost %.2f", pr.OriginalBet)))
			}
		}

	case server.MessageTypeRoundReset:
		m.headTotal, m.taleTotal = 0, 0
		m.wagerPlaced = false
		m.addLog(InfoStyle.Render("Table cleared for the next round"))

	case server.MessageTypeParticipantsChanged:
		var data server.ParticipantsChangedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.participants = data.ActiveParticipants

	case server.MessageTypeParticipantLeft:
		var data server.ParticipantLeftData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.participants = data.ActiveParticipants
		m.headTotal = data.HeadTotal
		m.taleTotal = data.TaleTotal
		m.addLog(InfoStyle.Render(fmt.Sprintf("%s left", shortID(data.ParticipantID))))

	case server.MessageTypeError:
		var data server.ErrorData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return
		}
		m.addLog(ErrorStyle.Render(fmt.Sprintf("Rejected: %s", data.Message)))

	default:
		m.logger.Debug("Unhandled message type", "type", msg.Type)
	}
}

// addLog appends an entry to the game log and scrolls to it.
func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)

	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := HeaderStyle.Render(" FLIPSIDE ") + " " + m.renderStatus()
	board := m.renderBoard()
	input := m.renderInputPane()

	chromeHeight := lipgloss.Height(header) + lipgloss.Height(board) + lipgloss.Height(input) + 2

	logWidth := m.width - 2
	logHeight := m.height - chromeHeight - 2
	if logWidth < 1 {
		logWidth = 1
	}
	if logHeight < 1 {
		logHeight = 1
	}

	m.logViewport.Width = logWidth
	m.logViewport.Height = logHeight
	if !m.initialized && logWidth > 1 && logHeight > 1 {
		m.logViewport.GotoBottom()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(logWidth).
		Height(logHeight)

	return lipgloss.JoinVertical(lipgloss.Top,
		header,
		board,
		logStyle.Render(m.logViewport.View()),
		input,
	)
}

// renderStatus shows the round phase and countdown.
func (m *Model) renderStatus() string {
	switch {
	case m.roundActive:
		remaining := time.Until(m.endsAt).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		return SuccessStyle.Render(fmt.Sprintf("Round open, %s left", remaining))
	case m.lastResult != nil:
		return WarningStyle.Render("Cooling down...")
	default:
		return InfoStyle.Render("Waiting for round")
	}
}

// renderBoard shows totals, the outcome history strip and who is here.
func (m *Model) renderBoard() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s %s   %s %s",
		HeadStyle.Render("HEAD"), WarningStyle.Render(fmt.Sprintf("%.2f", m.headTotal)),
		TaleStyle.Render("TALE"), WarningStyle.Render(fmt.Sprintf("%.2f", m.taleTotal))))
	b.WriteString("\n")

	b.WriteString("History: ")
	if len(m.history) == 0 {
		b.WriteString(InfoStyle.Render("none yet"))
	} else {
		marks := make([]string, 0, len(m.history))
		for _, o := range m.history {
			marks = append(marks, renderOutcome(o))
		}
		b.WriteString(strings.Join(marks, " "))
	}
	b.WriteString("\n")

	b.WriteString(InfoStyle.Render(fmt.Sprintf("Participants: %d", len(m.participants))))
	return b.String()
}

// renderInputPane renders the side selector, amount input and help line.
func (m *Model) renderInputPane() string {
	var b strings.Builder

	head := "  head  "
	tale := "  tale  "
	if m.side == 0 {
		head = HeadStyle.Render("[ head ]")
	} else {
		tale = TaleStyle.Render("[ tale ]")
	}
	b.WriteString(head + " " + tale + "  " + m.amountInput.View())
	b.WriteString("\n")

	if m.wagerPlaced {
		b.WriteString(InfoStyle.Render("Wager placed, waiting for settlement • Ctrl+C to quit"))
	} else {
		b.WriteString(InfoStyle.Render("←/→ pick side • Enter to wager • Ctrl+C to quit"))
	}
	return b.String()
}

func renderSide(s game.Side) string {
	if s == game.SideHead {
		return HeadStyle.Render("head")
	}
	return TaleStyle.Render("tale")
}

func renderOutcome(o game.Outcome) string {
	switch o {
	case game.OutcomeHead:
		return HeadStyle.Render("H")
	case game.OutcomeTale:
		return TaleStyle.Render("T")
	default:
		return DrawStyle.Render("-")
	}
}

// shortID trims a UUID down to something readable in the log.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
