// Command spectator is a terminal viewer: it connects as a spectator
// session, lists the type of every broadcast in a log pane, and renders
// the game_state carried by the latest broadcast as a table view (a record
// without one, such as hand_end, leaves the table empty), using the same Bubble Tea model/update/view structure the teacher's
// removed TUI client used for its table view.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

type cli struct {
	Server string `help:"Server websocket URL." default:"ws://localhost:8765/ws" env:"ALGOPOKER_SERVER"`
}

type styles struct {
	header  lipgloss.Style
	pane    lipgloss.Style
	active  lipgloss.Style
	folded  lipgloss.Style
	pot     lipgloss.Style
	footer  lipgloss.Style
}

func newStyles() styles {
	return styles{
		header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true),
		pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(1),
		active: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		folded: lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		pot:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
		footer: lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
	}
}

// gameState mirrors the wire shape of protocol.GameState closely enough to
// render it; the spectator client deliberately doesn't import the server's
// internal/protocol package, matching the "clients are external agents"
// framing of spec §1.
type gameState struct {
	Street         string `json:"street"`
	HandNumber     int    `json:"hand_number"`
	CommunityCards []string `json:"community_cards"`
	Pot            struct {
		Total int `json:"total"`
	} `json:"pot"`
	Players []struct {
		Seat       int      `json:"seat"`
		Name       string   `json:"name"`
		Stack      int      `json:"stack"`
		CurrentBet int      `json:"current_bet"`
		IsActive   bool     `json:"is_active"`
		IsAllIn    bool     `json:"is_all_in"`
		HoleCards  []string `json:"hole_cards"`
	} `json:"players"`
	ActorSeat *int `json:"actor_seat"`
}

type wireMsg struct {
	Type      string    `json:"type"`
	GameState gameState `json:"game_state"`
}

type connectedMsg struct{ conn *websocket.Conn }
type frameMsg struct{ msg wireMsg }
type errMsg struct{ err error }

type model struct {
	cli    cli
	st     styles
	conn   *websocket.Conn
	log    viewport.Model
	lines  []string
	state  gameState
	width  int
	height int
}

func initialModel(c cli) model {
	vp := viewport.New(80, 15)
	return model{cli: c, st: newStyles(), log: vp}
}

func (m model) Init() tea.Cmd {
	return connect(m.cli.Server)
}

func connect(server string) tea.Cmd {
	return func() tea.Msg {
		conn, _, err := websocket.DefaultDialer.Dial(server, nil)
		if err != nil {
			return errMsg{err}
		}
		if err := conn.WriteJSON(map[string]string{"type": "spectate"}); err != nil {
			return errMsg{err}
		}
		return connectedMsg{conn}
	}
}

func readNext(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return errMsg{err}
		}
		var m wireMsg
		if err := json.Unmarshal(raw, &m); err != nil {
			return errMsg{err}
		}
		return frameMsg{m}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width, m.log.Height = msg.Width-4, msg.Height-10
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case connectedMsg:
		m.conn = msg.conn
		return m, readNext(m.conn)
	case frameMsg:
		m.lines = append(m.lines, fmt.Sprintf("[%s]", msg.msg.Type))
		m.log.SetContent(strings.Join(m.lines, "\n"))
		m.log.GotoBottom()
		if msg.msg.Type != "" {
			m.state = msg.msg.GameState
		}
		return m, readNext(m.conn)
	case errMsg:
		m.lines = append(m.lines, "connection error: "+msg.err.Error())
		m.log.SetContent(strings.Join(m.lines, "\n"))
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.log, cmd = m.log.Update(msg)
	return m, cmd
}

func (m model) View() string {
	header := m.st.header.Render(fmt.Sprintf(" algopoker spectator — hand %d — %s ", m.state.HandNumber, m.state.Street))

	var rows []string
	for _, p := range m.state.Players {
		mark := " "
		if m.state.ActorSeat != nil && *m.state.ActorSeat == p.Seat {
			mark = "*"
		}
		style := m.st.active
		if !p.IsActive {
			style = m.st.folded
		}
		row := fmt.Sprintf("%s seat %d  %-12s stack=%-6d bet=%-6d %s", mark, p.Seat, p.Name, p.Stack, p.CurrentBet, strings.Join(p.HoleCards, " "))
		rows = append(rows, style.Render(row))
	}

	pot := m.st.pot.Render(fmt.Sprintf("pot: %d   board: %s", m.state.Pot.Total, strings.Join(m.state.CommunityCards, " ")))

	table := m.st.pane.Render(strings.Join(rows, "\n") + "\n\n" + pot)

	footer := m.st.footer.Render("q to quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, table, m.log.View(), footer)
}

func main() {
	var c cli
	kong.Parse(&c, kong.Name("spectator"), kong.Description("Terminal spectator view for an algopoker tournament"))

	if _, err := tea.NewProgram(initialModel(c), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
