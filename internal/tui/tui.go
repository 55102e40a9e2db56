// Package tui provides a Bubble Tea live view of the desktop screenshots.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sebfried/menubarmaid/internal/screenshot"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Keys ────────────

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Open key.Binding
	Copy key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open: key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open")),
		Copy: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy path")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Up, k.Down, k.Open, k.Copy, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// Actions carries out the open and copy keys. launcher.Launcher implements it.
type Actions interface {
	OpenFile(ctx context.Context, path string) error
	CopyPath(ctx context.Context, text string) error
}

// ── Messages ────────────

type listMsg []screenshot.Record

type closedMsg struct{}

type actionMsg struct {
	text string
	err  error
}

// ── Model ────────────

// Model is the root Bubble Tea model for the live view.
type Model struct {
	dir     string
	updates <-chan []screenshot.Record
	actions Actions
	keys    keyMap

	records []screenshot.Record
	loaded  bool
	cursor  int
	updated time.Time
	status  string
	failed  bool

	width  int
	height int

	now func() time.Time
}

// New creates a live view of dir fed by updates. actions may be nil, in
// which case the open and copy keys report that they are unavailable.
func New(dir string, updates <-chan []screenshot.Record, actions Actions) Model {
	return Model{
		dir:     dir,
		updates: updates,
		actions: actions,
		keys:    defaultKeyMap(),
		now:     time.Now,
	}
}

// Run starts the view on the alternate screen and blocks until the user
// quits or the updates channel closes.
func Run(dir string, updates <-chan []screenshot.Record, actions Actions) error {
	p := tea.NewProgram(New(dir, updates, actions), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func waitForList(ch <-chan []screenshot.Record) tea.Cmd {
	return func() tea.Msg {
		list, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return listMsg(list)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitForList(m.updates)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listMsg:
		m.records = msg
		m.loaded = true
		m.updated = m.now()
		if m.cursor >= len(m.records) {
			m.cursor = max(len(m.records)-1, 0)
		}
		return m, waitForList(m.updates)

	case closedMsg:
		return m, tea.Quit

	case actionMsg:
		m.failed = msg.err != nil
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = msg.text
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.records)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Open):
			return m, m.act(func(ctx context.Context, r screenshot.Record) (string, error) {
				return "Opened " + r.FileName, m.actions.OpenFile(ctx, r.FilePath)
			})
		case key.Matches(msg, m.keys.Copy):
			return m, m.act(func(ctx context.Context, r screenshot.Record) (string, error) {
				return "Copied path of " + r.FileName, m.actions.CopyPath(ctx, r.FilePath)
			})
		}
	}
	return m, nil
}

// act runs fn for the selected record off the UI goroutine.
func (m Model) act(fn func(context.Context, screenshot.Record) (string, error)) tea.Cmd {
	if len(m.records) == 0 {
		return nil
	}
	if m.actions == nil {
		return func() tea.Msg { return actionMsg{err: errors.New("actions are not available")} }
	}
	r := m.records[m.cursor]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		text, err := fn(ctx, r)
		return actionMsg{text: text, err: err}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	width := max(m.width, 40)
	title := titleStyle.Width(width).Render("menubarmaid  " + m.dir)

	var sb strings.Builder
	sb.WriteString("\n")
	switch {
	case !m.loaded:
		sb.WriteString(dimStyle.Render("  Scanning…") + "\n")
	case len(m.records) == 0:
		sb.WriteString(dimStyle.Render("  No screenshots found on the desktop.") + "\n")
	default:
		for i, r := range m.records {
			line := fmt.Sprintf("  %d. %s - %s", i+1, r.FileName,
				timeStyle.Render(r.CreationTime.UTC().Format("2006-01-02 15:04:05")))
			if i == m.cursor {
				line = selectedRowStyle.Width(width).Render(fmt.Sprintf("› %d. %s - %s", i+1, r.FileName,
					r.CreationTime.UTC().Format("2006-01-02 15:04:05")))
			}
			sb.WriteString(line + "\n")
		}
	}
	sb.WriteString("\n")
	if m.status != "" {
		style := dimStyle
		if m.failed {
			style = errorStyle
		}
		sb.WriteString(style.Render("  "+m.status) + "\n")
	}

	hint := "  " + m.keys.help()
	if !m.updated.IsZero() {
		hint += fmt.Sprintf("  · %d shown, updated %s", len(m.records), m.updated.Format("15:04:05"))
	}
	statusBar := statusBarStyle.Width(width).Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, sb.String(), statusBar)
}
